package env

import (
	"github.com/abdul-hamid-achik/rede/packages/core/parser"
)

// ResolveRequest returns a copy of req with every template expanded. The
// original is left untouched so it can be resolved again, e.g. in watch mode.
func (r *Resolver) ResolveRequest(req *parser.Request) *parser.Request {
	out := *req
	out.URL = r.Resolve(req.URL)

	out.Headers = make([]*parser.Header, 0, len(req.Headers))
	for _, h := range req.Headers {
		out.Headers = append(out.Headers, &parser.Header{
			Key:   h.Key,
			Value: r.Resolve(h.Value),
			Line:  h.Line,
		})
	}

	out.QueryParams = make([]*parser.QueryParam, 0, len(req.QueryParams))
	for _, qp := range req.QueryParams {
		out.QueryParams = append(out.QueryParams, &parser.QueryParam{
			Key:     r.Resolve(qp.Key),
			Value:   r.Resolve(qp.Value),
			Raw:     r.ResolveQuery(qp.Raw),
			FromURL: qp.FromURL,
			Line:    qp.Line,
		})
	}

	if req.Body != nil {
		body := *req.Body
		body.Raw = r.Resolve(req.Body.Raw)
		body.Path = r.Resolve(req.Body.Path)
		body.ContentType = r.Resolve(req.Body.ContentType)

		body.Form = nil
		for _, f := range req.Body.Form {
			body.Form = append(body.Form, &parser.FormField{
				Key:   r.Resolve(f.Key),
				Value: r.Resolve(f.Value),
				Line:  f.Line,
			})
		}

		body.Multipart = nil
		for _, f := range req.Body.Multipart {
			body.Multipart = append(body.Multipart, &parser.MultipartField{
				Type:  f.Type,
				Name:  r.Resolve(f.Name),
				Value: r.Resolve(f.Value),
				Path:  r.Resolve(f.Path),
				Line:  f.Line,
			})
		}
		out.Body = &body
	}

	return &out
}
