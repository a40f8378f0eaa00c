package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abdul-hamid-achik/rede/packages/core/config"
	"github.com/abdul-hamid-achik/rede/packages/core/env"
	"github.com/abdul-hamid-achik/rede/packages/core/failure"
	"github.com/abdul-hamid-achik/rede/packages/core/logging"
	"github.com/abdul-hamid-achik/rede/packages/core/parser"
	"github.com/abdul-hamid-achik/rede/packages/http"
)

// Config holds what the command line asked for. Pointer fields are nil when
// the flag was not given, so annotations and the config file can fill them.
type Config struct {
	Name            string
	Variables       map[string]any
	EnvFile         string
	Timeout         *time.Duration
	MaxRedirects    *int
	FollowRedirects *bool
	ContentType     string
	Headers         []http.Header
	Insecure        bool
	Proxy           string
	UserAgent       string
	// Settings are the defaults read from a config file.
	Settings *config.Config
	Logger   logrus.FieldLogger
}

type Runner struct {
	config *Config
	log    logrus.FieldLogger
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Settings == nil {
		cfg.Settings = config.DefaultConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{
		config: cfg,
		log:    log,
	}
}

type Result struct {
	File string
	// Definition is the selected request after template expansion.
	Definition *parser.Request
	Request    *http.Request
	Response   *http.Response
	Duration   time.Duration
}

// RunFile parses path and runs the selected request.
func (r *Runner) RunFile(ctx context.Context, path string) (*Result, error) {
	file, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, file)
}

// Run executes the selected request of an already parsed file.
func (r *Runner) Run(ctx context.Context, file *parser.File) (*Result, error) {
	start := time.Now()
	log := r.log.WithField("file", file.Path)

	def, ok := file.Find(r.config.Name)
	if !ok {
		if r.config.Name == "" {
			return nil, failure.New(failure.ParseError, file.Path, "%s: no request found", file.Path)
		}
		return nil, failure.New(failure.InvalidRequestFile, r.config.Name,
			"%s: no request named %q", file.Path, r.config.Name)
	}

	resolver, err := r.resolver(file)
	if err != nil {
		return nil, err
	}
	resolved := resolver.ResolveRequest(def)
	log = log.WithFields(logrus.Fields{
		"request": resolved.Name,
		"method":  resolved.Method,
	})

	opts, err := r.Options(resolved, filepath.Dir(file.Path))
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"timeout":       opts.Timeout,
		"max_redirects": opts.MaxRedirects,
		"follow":        opts.FollowRedirects,
	}).Debug("running request")

	body, err := http.ResolveBody(resolved.Body, opts)
	if err != nil {
		return nil, err
	}
	req, err := http.Build(resolved, body, opts)
	if err != nil {
		return nil, err
	}

	client := http.NewClient(http.WithOptions(opts), http.WithLogger(log))
	defer client.Close()

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Result{
		File:       file.Path,
		Definition: resolved,
		Request:    req,
		Response:   resp,
		Duration:   time.Since(start),
	}, nil
}

// resolver layers variables from lowest to highest precedence: config file,
// .env files, file declarations and finally --var values, which file
// declarations cannot override.
func (r *Runner) resolver(file *parser.File) (*env.Resolver, error) {
	resolver := env.NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		r.log.WithField("file", file.Path).Warnf(format, args...)
	})

	settings := r.config.Settings
	for name, value := range settings.Variables {
		resolver.SetVariable(name, value)
	}

	dotenv, err := env.LoadDotEnvBeside(file.Path)
	if err != nil {
		return nil, failure.Wrap(failure.InvalidFile, file.Path, err, "%s", err.Error())
	}
	envFile := r.config.EnvFile
	if envFile == "" {
		envFile = settings.EnvFile
	}
	if envFile != "" {
		extra, err := env.LoadDotEnv(envFile)
		if err != nil {
			return nil, failure.Wrap(failure.InvalidFile, envFile, err, "%s: %s", envFile, failure.Reason(err))
		}
		for k, v := range extra {
			dotenv[k] = v
		}
	}
	resolver.SetDotEnv(dotenv)

	resolver.SetVariables(r.config.Variables)
	env.ApplyFileVariables(file, resolver, r.config.Variables)
	return resolver, nil
}

// Options merges runtime options for def: flags win over annotations, which
// win over the config file, which wins over built-in defaults.
func (r *Runner) Options(def *parser.Request, baseDir string) (http.Options, error) {
	cfg := r.config
	settings := cfg.Settings
	opts := http.DefaultOptions()
	opts.BaseDir = baseDir
	opts.ContentType = cfg.ContentType

	meta := def.Metadata
	if meta == nil {
		meta = &parser.RequestMetadata{}
	}

	switch {
	case cfg.Timeout != nil:
		opts.Timeout = *cfg.Timeout
	case meta.Timeout != nil:
		opts.Timeout = *meta.Timeout
	default:
		timeout, err := settings.GetTimeout()
		if err != nil {
			return opts, fmt.Errorf("config: %w", err)
		}
		opts.Timeout = timeout
	}
	if opts.Timeout < 0 {
		return opts, fmt.Errorf("timeout must not be negative, got %s", opts.Timeout)
	}

	switch {
	case cfg.MaxRedirects != nil:
		opts.MaxRedirects = *cfg.MaxRedirects
	case meta.MaxRedirects != nil:
		opts.MaxRedirects = *meta.MaxRedirects
	default:
		opts.MaxRedirects = settings.GetMaxRedirects()
	}

	switch {
	case cfg.FollowRedirects != nil:
		opts.FollowRedirects = *cfg.FollowRedirects
	case meta.NoRedirect:
		opts.FollowRedirects = false
	default:
		opts.FollowRedirects = settings.GetFollowRedirects()
	}

	opts.Insecure = cfg.Insecure || settings.GetInsecure()
	opts.Proxy = cfg.Proxy
	if opts.Proxy == "" {
		opts.Proxy = settings.Proxy
	}
	if opts.Proxy != "" {
		if _, err := http.ValidateProxy(opts.Proxy); err != nil {
			return opts, err
		}
	}
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}

	opts.Headers = append(opts.Headers, cfg.Headers...)
	for _, name := range sortedKeys(settings.Headers) {
		if len(def.HeaderValues(name)) > 0 || hasHeader(cfg.Headers, name) {
			continue
		}
		opts.Headers = append(opts.Headers, http.Header{Name: name, Value: settings.Headers[name]})
	}
	return opts, nil
}

func hasHeader(headers []http.Header, name string) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
