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

package options

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"k8s.io/klog/v2"
)

// Output formats understood by oc-whoami.
const (
	OutputName = "name"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Options contains configuration for oc-whoami.
type Options struct {
	// KubeConfig is the path to the kubeconfig file
	KubeConfig string

	// Server overrides the API server address of the kubeconfig
	Server string

	// Token is presented to the server. Defaults to the kubeconfig token.
	Token string

	// Scheme is the authentication scheme the token is presented with
	Scheme string

	// ExpiresIn is the token lifetime in seconds, empty if unknown
	ExpiresIn string

	// Output is one of name, json or yaml
	Output string

	// LogLevel sets the verbosity of logging
	LogLevel int

	// Config is the computed REST config (populated during Complete())
	Config *rest.Config `json:"-"`
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Scheme: "Bearer",
		Output: OutputName,
	}
}

// AddFlags adds command line flags for all Options fields.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.KubeConfig, "kubeconfig", o.KubeConfig,
		"Path to the kubeconfig file to use for API server connections")

	fs.StringVar(&o.Server, "server", o.Server,
		"Address of the API server, overrides the kubeconfig")

	fs.StringVar(&o.Token, "token", o.Token,
		"Token to verify. Defaults to the bearer token of the kubeconfig")

	fs.StringVar(&o.Scheme, "scheme", o.Scheme,
		"Authentication scheme the token is presented with")

	fs.StringVar(&o.ExpiresIn, "expires-in", o.ExpiresIn,
		"Lifetime of the token in seconds, used to report its expiry")

	fs.StringVarP(&o.Output, "output", "o", o.Output,
		"Output format, one of name, json or yaml")

	fs.IntVar(&o.LogLevel, "log-level", o.LogLevel,
		"Log level verbosity (0-10)")
}

// Validate validates all option values and returns an error if any are invalid.
func (o *Options) Validate() error {
	switch o.Output {
	case OutputName, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output must be one of %s, %s or %s, got %q", OutputName, OutputJSON, OutputYAML, o.Output)
	}

	if o.LogLevel < 0 || o.LogLevel > 10 {
		return fmt.Errorf("log-level must be between 0 and 10, got %d", o.LogLevel)
	}

	if o.Scheme == "" {
		return fmt.Errorf("scheme cannot be empty")
	}

	if o.ExpiresIn != "" {
		if _, err := strconv.ParseInt(o.ExpiresIn, 10, 64); err != nil {
			return fmt.Errorf("expires-in must be a number of seconds, got %q", o.ExpiresIn)
		}
	}

	return nil
}

// Complete fills in any missing configuration and performs any setup required
// before the options can be used.
func (o *Options) Complete() error {
	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	if err := klogFlags.Set("v", strconv.Itoa(o.LogLevel)); err != nil {
		return fmt.Errorf("failed to set log level: %w", err)
	}

	// $KUBECONFIG and ~/.kube/config apply unless --kubeconfig is given. With
	// no kubeconfig at all the in-cluster config is used.
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	loadingRules.ExplicitPath = o.KubeConfig
	overrides := &clientcmd.ConfigOverrides{
		ClusterInfo: clientcmdapi.Cluster{Server: o.Server},
	}

	var err error
	o.Config, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return fmt.Errorf("failed to build client config: %w", err)
	}

	if o.Token == "" {
		o.Token = o.Config.BearerToken
	}
	if o.Token == "" {
		return fmt.Errorf("no token given and the kubeconfig holds none")
	}

	return nil
}
