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
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// ResourceKind names a kind of resource served by the API.
type ResourceKind string

const (
	KindUser             ResourceKind = "User"
	KindGroup            ResourceKind = "Group"
	KindProject          ResourceKind = "Project"
	KindNamespace        ResourceKind = "Namespace"
	KindOAuthAccessToken ResourceKind = "OAuthAccessToken"
)

// KindInfo describes where a resource kind is served.
type KindInfo struct {
	// Resource is the group, version and plural resource name of the kind.
	Resource schema.GroupVersionResource

	// Namespaced is true when instances of the kind live in a namespace.
	Namespaced bool
}

// KindRegistry maps resource kinds to the API resources serving them.
// It is safe for concurrent use.
type KindRegistry struct {
	mu    sync.RWMutex
	kinds map[ResourceKind]KindInfo
}

// NewKindRegistry returns an empty registry.
func NewKindRegistry() *KindRegistry {
	return &KindRegistry{
		kinds: make(map[ResourceKind]KindInfo),
	}
}

// DefaultKinds returns a registry holding the OpenShift v1 kinds.
func DefaultKinds() *KindRegistry {
	r := NewKindRegistry()
	for kind, info := range map[ResourceKind]KindInfo{
		KindUser: {
			Resource: schema.GroupVersionResource{Group: "user.openshift.io", Version: "v1", Resource: "users"},
		},
		KindGroup: {
			Resource: schema.GroupVersionResource{Group: "user.openshift.io", Version: "v1", Resource: "groups"},
		},
		KindProject: {
			Resource: schema.GroupVersionResource{Group: "project.openshift.io", Version: "v1", Resource: "projects"},
		},
		KindNamespace: {
			Resource: schema.GroupVersionResource{Version: "v1", Resource: "namespaces"},
		},
		KindOAuthAccessToken: {
			Resource: schema.GroupVersionResource{Group: "oauth.openshift.io", Version: "v1", Resource: "oauthaccesstokens"},
		},
	} {
		// static entries are always valid
		_ = r.Register(kind, info)
	}
	return r
}

// Register adds or replaces the mapping for kind.
func (r *KindRegistry) Register(kind ResourceKind, info KindInfo) error {
	if kind == "" {
		return fmt.Errorf("resource kind cannot be empty")
	}
	if info.Resource.Resource == "" || info.Resource.Version == "" {
		return fmt.Errorf("resource kind %s: resource and version are required, got %q", kind, info.Resource.String())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = info
	return nil
}

// Lookup returns the mapping for kind, or an error wrapping ErrUnknownKind.
func (r *KindRegistry) Lookup(kind ResourceKind) (KindInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.kinds[kind]
	if !ok {
		return KindInfo{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return info, nil
}

// ListKinds returns the list kind for every registered resource, in the form
// expected by the fake dynamic client.
func (r *KindRegistry) ListKinds() map[schema.GroupVersionResource]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listKinds := make(map[schema.GroupVersionResource]string, len(r.kinds))
	for kind, info := range r.kinds {
		listKinds[info.Resource] = string(kind) + "List"
	}
	return listKinds
}
