package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/rede/packages/core/logging"
	"github.com/abdul-hamid-achik/rede/packages/mock"
)

var (
	echoPort    int
	echoDelay   time.Duration
	echoVerbose int
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Start a local echo API",
	Long: `Start a local HTTP server that answers with a JSON description of
each request it receives. HTTP/1.x and cleartext HTTP/2 are accepted.

Routes:
  /, /echo                  echo the request
  GET /get                  {"hello":"world"}
  /redirect/{n}             redirect n times, then echo
  /redirect-to?url=&status= redirect to url
  /loop                     redirect to itself forever
  /delay/{ms}               echo after ms milliseconds
  /status/{code}            reply with the status code
  /bytes/{n}                n bytes of binary data
  /bad-version              reply with an unusable HTTP version

Examples:
  rede echo
  rede echo --port 3000 --delay 100ms`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		level := logging.LevelInfo
		if echoVerbose > 0 {
			level = logging.LevelForVerbosity(echoVerbose)
		}
		logger := logging.New(logging.Config{
			Level:   level,
			Format:  "text",
			Output:  cmd.ErrOrStderr(),
			NoColor: noColorFlag,
		})

		server := mock.NewServer(
			mock.WithPort(echoPort),
			mock.WithDelay(echoDelay),
			mock.WithLogger(logger),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.Start(ctx)
	},
}

func init() {
	echoCmd.Flags().IntVarP(&echoPort, "port", "p", getEnvInt("REDE_ECHO_PORT", 8080), "Port to listen on (env: REDE_ECHO_PORT)")
	echoCmd.Flags().DurationVar(&echoDelay, "delay", 0, "Delay before every response")
	echoCmd.Flags().CountVarP(&echoVerbose, "verbose", "v", "Verbose output")
}
