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

package authorization

import (
	"errors"
	"fmt"
)

// ErrNoClient is returned when authorization is checked before a client was set.
var ErrNoClient = errors.New("authorization context has no client")

// ExpiresInParseError is returned when the expiry duration of a context is not
// an integer number of seconds.
type ExpiresInParseError struct {
	ExpiresIn string
	Err       error
}

func (e *ExpiresInParseError) Error() string {
	return fmt.Sprintf("could not parse expires-in %q: %v", e.ExpiresIn, e.Err)
}

func (e *ExpiresInParseError) Unwrap() error {
	return e.Err
}
