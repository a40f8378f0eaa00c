package failure

type Kind int

const (
	Unknown Kind = iota
	InvalidRequestFile
	ParseError
	InvalidFile
	InvalidURL
	RequestBuildFailure
	FailedConnection
	Timeout
	UnsupportedHTTPVersion
	RedirectLoop
)

type Stage int

const (
	StageUnknown Stage = iota
	StageInput
	StageBuild
	StageExecution
)

// Prefix is part of the command line contract and must not change.
func (k Kind) Prefix() string {
	switch k {
	case InvalidRequestFile:
		return "invalid [REQUEST]"
	case ParseError:
		return "parsing error"
	case InvalidFile:
		return "invalid file"
	case InvalidURL:
		return "invalid url"
	case RequestBuildFailure:
		return "failed request building"
	case FailedConnection:
		return "failed connection"
	case Timeout:
		return "timeout"
	case UnsupportedHTTPVersion:
		return "wrong http version"
	case RedirectLoop:
		return "redirect loop"
	default:
		return "error"
	}
}

func (k Kind) String() string {
	switch k {
	case InvalidRequestFile:
		return "InvalidRequestFile"
	case ParseError:
		return "ParseError"
	case InvalidFile:
		return "InvalidFile"
	case InvalidURL:
		return "InvalidUrl"
	case RequestBuildFailure:
		return "RequestBuildFailure"
	case FailedConnection:
		return "FailedConnection"
	case Timeout:
		return "Timeout"
	case UnsupportedHTTPVersion:
		return "UnsupportedHttpVersion"
	case RedirectLoop:
		return "RedirectLoop"
	default:
		return "Unknown"
	}
}

func (k Kind) Stage() Stage {
	switch k {
	case InvalidRequestFile, ParseError, InvalidFile:
		return StageInput
	case InvalidURL, RequestBuildFailure:
		return StageBuild
	case FailedConnection, Timeout, UnsupportedHTTPVersion, RedirectLoop:
		return StageExecution
	default:
		return StageUnknown
	}
}

func (s Stage) String() string {
	switch s {
	case StageInput:
		return "input"
	case StageBuild:
		return "build"
	case StageExecution:
		return "execution"
	default:
		return "unknown"
	}
}

// Kinds lists every classified kind in pipeline order.
func Kinds() []Kind {
	return []Kind{
		InvalidRequestFile,
		ParseError,
		InvalidFile,
		InvalidURL,
		RequestBuildFailure,
		FailedConnection,
		Timeout,
		UnsupportedHTTPVersion,
		RedirectLoop,
	}
}
