/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/credentio/credexchange-go/pkg/client/connection"
	"github.com/credentio/credexchange-go/pkg/controller/rest/credential"
)

const (
	// api host flag.
	apiHostFlagName      = "api-host"
	apiHostEnvKey        = "CREDEXCHANGE_API_HOST"
	apiHostFlagShorthand = "a"
	apiHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + apiHostEnvKey

	// log level flag.
	logLevelFlagName  = "log-level"
	logLevelEnvKey    = "CREDEXCHANGE_LOG_LEVEL"
	logLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + logLevelEnvKey
)

var logger = log.New("credexchange/rest") // nolint:gochecknoglobals

type server interface {
	ListenAndServe(host string, router http.Handler) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler) error {
	return http.ListenAndServe(host, router)
}

type parameters struct {
	server   server
	host     string
	logLevel string
}

// Cmd returns the Cobra start command.
func Cmd(srv server) (*cobra.Command, error) {
	startCmd := createStartCmd(srv)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCmd(srv server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a credexchange REST controller",
		Long:  "Start a controller exposing the credential exchange session API over REST",
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := getUserSetVar(cmd, apiHostFlagName, apiHostEnvKey, false)
			if err != nil {
				return err
			}

			logLevel, err := getUserSetVar(cmd, logLevelFlagName, logLevelEnvKey, true)
			if err != nil {
				return err
			}

			parameters := &parameters{
				server:   srv,
				host:     host,
				logLevel: logLevel,
			}

			return startController(parameters)
		},
	}
}

func createFlags(startCmd *cobra.Command) {
	startCmd.Flags().StringP(apiHostFlagName, apiHostFlagShorthand, "", apiHostFlagUsage)
	startCmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func setLogLevel(level string) error {
	if level == "" {
		return nil
	}

	logLevel, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level '%s' : %w", level, err)
	}

	log.SetLevel("", logLevel)

	logger.Infof("logger level set to %s", strings.ToLower(level))

	return nil
}

func startController(parameters *parameters) error {
	if err := setLogLevel(parameters.logLevel); err != nil {
		return err
	}

	// connections are registered by the embedding application; the REST
	// surface starts with an empty registrar.
	registrar := connection.NewRegistrar()

	credentialOp, err := credential.New(registrar)
	if err != nil {
		return fmt.Errorf("create credential rest operation: %w", err)
	}

	router := mux.NewRouter()

	for _, handler := range credentialOp.GetRESTHandlers() {
		router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	logger.Infof("starting credexchange rest controller on host %s", parameters.host)

	return parameters.server.ListenAndServe(parameters.host, cors.Default().Handler(router))
}
