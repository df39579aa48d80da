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

package restclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilnet "k8s.io/apimachinery/pkg/util/net"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"
)

const (
	// CurrentUserName is the name the API resolves to the user owning the
	// presented credentials.
	CurrentUserName = "~"

	// DefaultScheme is used when a credential source reports no scheme.
	DefaultScheme = "Bearer"
)

// ErrUnknownKind is returned for kinds missing from the KindRegistry.
var ErrUnknownKind = errors.New("unknown resource kind")

// ErrClientNotInitialized is returned by a DynamicClient that was not built
// with NewDynamicClient or NewForConfig.
var ErrClientNotInitialized = errors.New("client is not initialized")

// Client fetches resources from the API.
type Client interface {
	// Get returns the resource of the given kind and name. The namespace is
	// ignored for cluster scoped kinds.
	Get(ctx context.Context, kind ResourceKind, name, namespace string) (*unstructured.Unstructured, error)
}

// CredentialSource provides the scheme and token presented on every request.
type CredentialSource interface {
	Credentials() (scheme, token string)
}

// DynamicClient implements Client on top of a dynamic client.
type DynamicClient struct {
	dynamic dynamic.Interface
	kinds   *KindRegistry
}

var _ Client = &DynamicClient{}

// NewDynamicClient returns a Client resolving kinds through the given registry.
func NewDynamicClient(client dynamic.Interface, kinds *KindRegistry) (*DynamicClient, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamic client cannot be nil")
	}
	if kinds == nil {
		return nil, fmt.Errorf("kind registry cannot be nil")
	}
	return &DynamicClient{
		dynamic: client,
		kinds:   kinds,
	}, nil
}

// NewForConfig builds a Client for cfg. When creds is non-nil, every request
// carries the Authorization header built from it, replacing whatever
// credentials cfg holds. cfg itself is not modified.
func NewForConfig(cfg *rest.Config, creds CredentialSource) (*DynamicClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("rest config cannot be nil")
	}

	cfg = rest.CopyConfig(cfg)
	if creds != nil {
		cfg.BearerToken = ""
		cfg.BearerTokenFile = ""
		cfg.Username = ""
		cfg.Password = ""
		cfg.Wrap(func(rt http.RoundTripper) http.RoundTripper {
			return &credentialRoundTripper{creds: creds, rt: rt}
		})
	}

	client, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	return NewDynamicClient(client, DefaultKinds())
}

// Get implements Client.
func (c *DynamicClient) Get(ctx context.Context, kind ResourceKind, name, namespace string) (*unstructured.Unstructured, error) {
	if c == nil || c.dynamic == nil || c.kinds == nil {
		return nil, ErrClientNotInitialized
	}
	info, err := c.kinds.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("name is required to get %s", kind)
	}

	namespaceable := c.dynamic.Resource(info.Resource)
	var resource dynamic.ResourceInterface = namespaceable
	if info.Namespaced {
		if namespace == "" {
			return nil, fmt.Errorf("namespace is required to get %s %q", kind, name)
		}
		resource = namespaceable.Namespace(namespace)
	}

	logger := klog.FromContext(ctx).WithValues("kind", kind, "name", name)
	if info.Namespaced {
		logger = logger.WithValues("namespace", namespace)
	}
	logger.V(5).Info("getting resource", "resource", info.Resource.String())

	obj, err := resource.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %q: %w", kind, name, err)
	}
	return obj, nil
}

type credentialRoundTripper struct {
	creds CredentialSource
	rt    http.RoundTripper
}

func (c *credentialRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	scheme, token := c.creds.Credentials()
	if token == "" {
		return c.rt.RoundTrip(req)
	}
	if scheme == "" {
		scheme = DefaultScheme
	}

	req = utilnet.CloneRequest(req)
	req.Header.Set("Authorization", scheme+" "+token)
	return c.rt.RoundTrip(req)
}

func (c *credentialRoundTripper) WrappedRoundTripper() http.RoundTripper { return c.rt }
