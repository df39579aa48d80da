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

// Package user provides the OpenShift User resource model.
package user

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// GroupVersionKind of the User resource.
var GroupVersionKind = schema.GroupVersionKind{
	Group:   "user.openshift.io",
	Version: "v1",
	Kind:    "User",
}

// KindMismatchError is returned when an object of another kind is passed
// where a User is expected.
type KindMismatchError struct {
	Got schema.GroupVersionKind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("expected kind %s, got %q", GroupVersionKind.Kind, e.Got.String())
}

// User is an OpenShift user as returned by the API.
type User struct {
	obj *unstructured.Unstructured
}

// FromUnstructured wraps obj. The group of obj is not checked, legacy servers
// serve users without one.
func FromUnstructured(obj *unstructured.Unstructured) (*User, error) {
	if obj == nil {
		return nil, fmt.Errorf("user object cannot be nil")
	}
	if gvk := obj.GroupVersionKind(); gvk.Kind != GroupVersionKind.Kind {
		return nil, &KindMismatchError{Got: gvk}
	}
	return &User{obj: obj}, nil
}

// New returns a User with the given name and no other attributes.
func New(name string) *User {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(GroupVersionKind)
	obj.SetName(name)
	return &User{obj: obj}
}

func (u *User) Name() string {
	return u.obj.GetName()
}

func (u *User) UID() string {
	return string(u.obj.GetUID())
}

// FullName returns the display name of the user, empty when unset.
func (u *User) FullName() string {
	name, _, _ := unstructured.NestedString(u.obj.Object, "fullName")
	return name
}

// Identities returns the identity provider mappings of the user, formatted
// as "<provider>:<name>".
func (u *User) Identities() []string {
	identities, _, _ := unstructured.NestedStringSlice(u.obj.Object, "identities")
	return identities
}

// Groups returns the groups the user was explicitly added to.
func (u *User) Groups() []string {
	groups, _, _ := unstructured.NestedStringSlice(u.obj.Object, "groups")
	return groups
}

// Object returns a deep copy of the underlying object.
func (u *User) Object() *unstructured.Unstructured {
	return u.obj.DeepCopy()
}
