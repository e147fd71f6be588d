package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/devops-wrapped/internal/config"
	"github.com/naka-gawa/devops-wrapped/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the summary over HTTP",
	Long: `Starts an HTTP server exposing:

  GET  /api/health
  POST /api/wrapped        body: {"organization","projects","repository","year","userEmail"}
  GET  /api/projects       ?organization=
  GET  /api/repositories   ?organization=&project=

Callers pass their token as "Authorization: Bearer <PAT>"; the configured
token is used when the header is absent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		token, err := a.token(ctx)
		if err != nil {
			return err
		}

		production := a.cfg.Mode == config.ModeProduction
		if production {
			gin.SetMode(gin.ReleaseMode)
		}
		h := server.NewHandler(a.service(), a.logger, token, production)
		return server.New(a.cfg.Server.Addr, h, a.logger).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	flags := serveCmd.Flags()
	flags.String("addr", "", "Listen address (default :8080)")
	flags.String("mode", "", "development or production")

	bindFlag("server.addr", flags.Lookup("addr"))
	bindFlag("mode", flags.Lookup("mode"))
}
