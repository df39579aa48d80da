/*
Copyright 2025 The KCP Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/klog/v2"

	"github.com/openshift/restclient-go/cmd/oc-whoami/options"
	"github.com/openshift/restclient-go/pkg/metrics"
	"github.com/openshift/restclient-go/pkg/restclient"
	"github.com/openshift/restclient-go/pkg/restclient/authorization"
)

var errNotAuthorized = errors.New("token is not authorized")

func main() {
	opts := options.NewOptions()

	fs := pflag.NewFlagSet("", pflag.ExitOnError)
	opts.AddFlags(fs)

	cmd := &cobra.Command{
		Use:   "oc-whoami",
		Short: "Verify a token against the API server and print the user it belongs to",
		Long: `oc-whoami presents a token to the API server, looks up the current user
and prints it. It exits with a non-zero status when the token is rejected.

The token and server default to the current context of the kubeconfig.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			if err := opts.Complete(); err != nil {
				return err
			}
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	fs.AddGoFlagSet(flag.CommandLine)
	cmd.Flags().AddFlagSet(fs)

	ctx := setupSignalHandler()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options.Options, out io.Writer) error {
	logger := klog.FromContext(ctx)

	registry := metrics.GetRegistry()
	defer registry.LogUserLookups(logger.V(2))

	authCtx := authorization.NewAuthorizationContext(opts.Token, opts.ExpiresIn, nil, opts.Scheme,
		authorization.WithMetrics(registry))

	client, err := restclient.NewForConfig(opts.Config, authCtx)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	authCtx.SetClient(client)

	authorized, err := authCtx.IsAuthorized(ctx)
	if err != nil {
		return err
	}
	if !authorized {
		return errNotAuthorized
	}

	if opts.ExpiresIn == "" {
		logger.V(1).Info("Token verified", "server", opts.Config.Host)
	} else {
		expires, err := authCtx.Expires()
		if err != nil {
			return err
		}
		logger.V(1).Info("Token verified", "server", opts.Config.Host, "expires", expires.UTC())
	}

	return printUser(out, authCtx.User(), opts.Output)
}

// setupSignalHandler registers signal handlers and returns a context that is cancelled on signal
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1) // second signal. Exit directly.
	}()
	return ctx
}
