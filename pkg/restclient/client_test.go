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
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/rest"
	clienttesting "k8s.io/client-go/testing"
)

func newObject(apiVersion, kind, namespace, name string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion(apiVersion)
	obj.SetKind(kind)
	obj.SetNamespace(namespace)
	obj.SetName(name)
	return obj
}

func newFakeClient(t *testing.T, kinds *KindRegistry, objects ...runtime.Object) (*DynamicClient, *fake.FakeDynamicClient) {
	t.Helper()
	dynamicClient := fake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), kinds.ListKinds(), objects...)
	client, err := NewDynamicClient(dynamicClient, kinds)
	require.NoError(t, err)
	return client, dynamicClient
}

func TestNewDynamicClient(t *testing.T) {
	_, err := NewDynamicClient(nil, DefaultKinds())
	assert.Error(t, err)

	_, err = NewDynamicClient(fake.NewSimpleDynamicClient(runtime.NewScheme()), nil)
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	kinds := DefaultKinds()
	require.NoError(t, kinds.Register("Pod", KindInfo{
		Resource:   schema.GroupVersionResource{Version: "v1", Resource: "pods"},
		Namespaced: true,
	}))

	client, _ := newFakeClient(t, kinds,
		newObject("user.openshift.io/v1", "User", "", "developer"),
		newObject("project.openshift.io/v1", "Project", "", "myproject"),
		newObject("v1", "Pod", "myproject", "web"),
	)

	tests := map[string]struct {
		kind      ResourceKind
		name      string
		namespace string
		wantErr   func(error) bool
	}{
		"user": {
			kind: KindUser,
			name: "developer",
		},
		"cluster scoped ignores namespace": {
			kind:      KindProject,
			name:      "myproject",
			namespace: "other",
		},
		"namespaced": {
			kind:      "Pod",
			name:      "web",
			namespace: "myproject",
		},
		"namespaced without namespace": {
			kind:    "Pod",
			name:    "web",
			wantErr: func(err error) bool { return err != nil },
		},
		"missing name": {
			kind:    KindUser,
			wantErr: func(err error) bool { return err != nil },
		},
		"unknown kind": {
			kind:    "Route",
			name:    "web",
			wantErr: func(err error) bool { return errors.Is(err, ErrUnknownKind) },
		},
		"not found": {
			kind:    KindUser,
			name:    "nobody",
			wantErr: apierrors.IsNotFound,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			obj, err := client.Get(context.Background(), tc.kind, tc.name, tc.namespace)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tc.wantErr(err), "unexpected error: %v", err)
				assert.Nil(t, obj)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(tc.kind), obj.GetKind())
			assert.Equal(t, tc.name, obj.GetName())
		})
	}
}

func TestGetCurrentUser(t *testing.T) {
	client, dynamicClient := newFakeClient(t, DefaultKinds())
	dynamicClient.PrependReactor("get", "users", func(action clienttesting.Action) (bool, runtime.Object, error) {
		get := action.(clienttesting.GetAction)
		if get.GetName() != CurrentUserName {
			return false, nil, nil
		}
		return true, newObject("user.openshift.io/v1", "User", "", "developer"), nil
	})

	obj, err := client.Get(context.Background(), KindUser, CurrentUserName, "")
	require.NoError(t, err)
	assert.Equal(t, "developer", obj.GetName())

	actions := dynamicClient.Actions()
	require.Len(t, actions, 1)
	assert.True(t, actions[0].Matches("get", "users"))
	assert.Equal(t, "user.openshift.io", actions[0].GetResource().Group)
}

func TestGetPropagatesStatusErrors(t *testing.T) {
	client, dynamicClient := newFakeClient(t, DefaultKinds())
	dynamicClient.PrependReactor("get", "users", func(clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewUnauthorized("token expired")
	})

	_, err := client.Get(context.Background(), KindUser, CurrentUserName, "")
	require.Error(t, err)
	assert.True(t, apierrors.IsUnauthorized(err))
}

func TestKindRegistry(t *testing.T) {
	kinds := NewKindRegistry()

	_, err := kinds.Lookup(KindUser)
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.Error(t, kinds.Register("", KindInfo{Resource: schema.GroupVersionResource{Version: "v1", Resource: "users"}}))
	assert.Error(t, kinds.Register(KindUser, KindInfo{}))

	gvr := schema.GroupVersionResource{Group: "user.openshift.io", Version: "v1", Resource: "users"}
	require.NoError(t, kinds.Register(KindUser, KindInfo{Resource: gvr}))

	info, err := kinds.Lookup(KindUser)
	require.NoError(t, err)
	assert.Equal(t, gvr, info.Resource)
	assert.False(t, info.Namespaced)
	assert.Equal(t, map[schema.GroupVersionResource]string{gvr: "UserList"}, kinds.ListKinds())
}

type staticCredentials struct {
	scheme, token string
}

func (s staticCredentials) Credentials() (string, string) {
	return s.scheme, s.token
}

func TestNewForConfigCredentials(t *testing.T) {
	tests := map[string]struct {
		creds CredentialSource
		want  string
	}{
		"scheme and token": {
			creds: staticCredentials{scheme: "Scheme", token: "42"},
			want:  "Scheme 42",
		},
		"default scheme": {
			creds: staticCredentials{token: "42"},
			want:  "Bearer 42",
		},
		"no token keeps config credentials out": {
			creds: staticCredentials{scheme: "Bearer"},
			want:  "",
		},
		"no source uses config token": {
			want: "Bearer from-config",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var mu sync.Mutex
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				got = r.Header.Get("Authorization")
				mu.Unlock()
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"kind":"User","apiVersion":"user.openshift.io/v1","metadata":{"name":"developer"}}`))
			}))
			defer server.Close()

			cfg := &rest.Config{Host: server.URL, BearerToken: "from-config"}
			client, err := NewForConfig(cfg, tc.creds)
			require.NoError(t, err)

			obj, err := client.Get(context.Background(), KindUser, CurrentUserName, "")
			require.NoError(t, err)
			assert.Equal(t, "developer", obj.GetName())

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, tc.want, got)
			assert.Equal(t, "from-config", cfg.BearerToken, "config must not be modified")
		})
	}
}

func TestNewForConfigNil(t *testing.T) {
	_, err := NewForConfig(nil, nil)
	assert.Error(t, err)
}

func TestGetUninitialized(t *testing.T) {
	var nilClient *DynamicClient
	_, err := nilClient.Get(context.Background(), KindUser, CurrentUserName, "")
	assert.ErrorIs(t, err, ErrClientNotInitialized)

	_, err = (&DynamicClient{}).Get(context.Background(), KindUser, CurrentUserName, "")
	assert.ErrorIs(t, err, ErrClientNotInitialized)
}
