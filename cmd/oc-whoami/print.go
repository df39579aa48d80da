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
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/openshift/restclient-go/cmd/oc-whoami/options"
	"github.com/openshift/restclient-go/pkg/restclient/user"
)

func printUser(out io.Writer, u *user.User, format string) error {
	var data []byte
	var err error
	switch format {
	case options.OutputName:
		_, err = fmt.Fprintln(out, u.Name())
		return err
	case options.OutputJSON:
		data, err = json.MarshalIndent(u.Object().Object, "", "    ")
		data = append(data, '\n')
	case options.OutputYAML:
		data, err = yaml.Marshal(u.Object().Object)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode user %q: %w", u.Name(), err)
	}
	_, err = out.Write(data)
	return err
}
