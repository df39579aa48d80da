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

// Package authorization holds the credentials a client presents to the API
// and verifies them against the current user.
package authorization

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"

	"github.com/openshift/restclient-go/pkg/metrics"
	"github.com/openshift/restclient-go/pkg/restclient"
	"github.com/openshift/restclient-go/pkg/restclient/user"
)

// AuthorizationContext pairs a token with the cached knowledge of whether it
// authorizes a user. The first call to IsAuthorized looks the current user up
// through the client; later calls answer from the cache until Invalidate is
// called or the token changes.
type AuthorizationContext struct {
	// lookupMu serializes lookups so that concurrent callers of an unresolved
	// context share one remote call. It is held across the call, mu is not:
	// the client reads Credentials while the lookup is in flight.
	lookupMu sync.Mutex
	mu       sync.Mutex

	id        string
	token     string
	expiresIn string
	scheme    string
	user      *user.User
	created   *time.Time

	authorized bool
	// generation is bumped on every invalidation. A lookup only caches its
	// result if no invalidation happened while it was in flight.
	generation uint64

	client  restclient.Client
	clock   clock.PassiveClock
	metrics *metrics.Registry
}

var _ restclient.CredentialSource = &AuthorizationContext{}

type options struct {
	client     restclient.Client
	clock      clock.PassiveClock
	metrics    *metrics.Registry
	created    *time.Time
	createdSet bool
}

// Option configures an AuthorizationContext.
type Option func(*options)

// WithClient sets the client used to look up the current user.
func WithClient(client restclient.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithClock sets the clock used for creation and expiry times.
func WithClock(clk clock.PassiveClock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// WithMetrics records user lookups to the given registry.
func WithMetrics(registry *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = registry
	}
}

// withCreated overrides the creation time, nil meaning unknown.
func withCreated(created *time.Time) Option {
	return func(o *options) {
		o.created = created
		o.createdSet = true
	}
}

// NewAuthorizationContext returns a context for token, expiring expiresIn
// seconds from now. The given user is only a hint and is not trusted until the
// first successful lookup.
func NewAuthorizationContext(token, expiresIn string, u *user.User, scheme string, opts ...Option) *AuthorizationContext {
	o := &options{
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(o)
	}

	c := &AuthorizationContext{
		id:        uuid.NewString(),
		token:     token,
		expiresIn: expiresIn,
		scheme:    scheme,
		user:      u,
		client:    o.client,
		clock:     o.clock,
		metrics:   o.metrics,
	}
	if o.createdSet {
		c.created = o.created
	} else {
		now := c.clock.Now()
		c.created = &now
	}
	return c
}

// IsAuthorized reports whether the token authorizes a user. A rejected token
// (unauthorized, forbidden, or no user found) yields false without error and
// is not cached; any other failure of the client is returned.
func (c *AuthorizationContext) IsAuthorized(ctx context.Context) (bool, error) {
	c.lookupMu.Lock()
	defer c.lookupMu.Unlock()

	logger := klog.FromContext(ctx).WithValues("authorizationContext", c.id)

	c.mu.Lock()
	if c.authorized {
		name := c.user.Name()
		c.mu.Unlock()
		logger.V(4).Info("using cached authorization", "user", name)
		return true, nil
	}
	client := c.client
	generation := c.generation
	c.mu.Unlock()

	if client == nil {
		return false, ErrNoClient
	}

	logger.V(4).Info("looking up current user")
	start := c.clock.Now()
	obj, err := client.Get(ctx, restclient.KindUser, restclient.CurrentUserName, "")
	duration := c.clock.Since(start)
	if err != nil {
		if isNotAuthorized(err) {
			c.observe(ctx, metrics.ResultUnauthorized, duration)
			logger.V(2).Info("token is not authorized", "reason", apierrors.ReasonForError(err))
			return false, nil
		}
		c.observe(ctx, metrics.ResultError, duration)
		return false, fmt.Errorf("failed to look up current user: %w", err)
	}

	u, err := user.FromUnstructured(obj)
	if err != nil {
		c.observe(ctx, metrics.ResultError, duration)
		return false, fmt.Errorf("unexpected current user response: %w", err)
	}
	c.observe(ctx, metrics.ResultAuthorized, duration)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
	if c.generation == generation {
		c.authorized = true
	} else {
		logger.V(2).Info("authorization invalidated during lookup, not caching", "user", u.Name())
	}
	if c.created == nil {
		now := c.clock.Now()
		c.created = &now
	}
	logger.V(4).Info("token authorized", "user", u.Name())
	return true, nil
}

func isNotAuthorized(err error) bool {
	return apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) || apierrors.IsNotFound(err)
}

func (c *AuthorizationContext) observe(ctx context.Context, result string, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveUserLookup(ctx, result, duration)
}

// Invalidate discards the cached authorization. The next IsAuthorized looks
// the current user up again.
func (c *AuthorizationContext) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

func (c *AuthorizationContext) invalidateLocked() {
	c.authorized = false
	c.generation++
}

// Expires returns the time the token expires. It is nil when the creation
// time is unknown.
func (c *AuthorizationContext) Expires() (*time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.created == nil {
		return nil, nil
	}
	seconds, err := strconv.ParseInt(c.expiresIn, 10, 64)
	if err != nil {
		return nil, &ExpiresInParseError{ExpiresIn: c.expiresIn, Err: err}
	}
	if seconds > math.MaxInt64/int64(time.Second) || seconds < math.MinInt64/int64(time.Second) {
		return nil, &ExpiresInParseError{ExpiresIn: c.expiresIn, Err: strconv.ErrRange}
	}

	expires := c.created.Add(time.Duration(seconds) * time.Second)
	return &expires, nil
}

// IsExpired reports whether the expiry time has passed. A context without an
// expiry duration never expires.
func (c *AuthorizationContext) IsExpired() (bool, error) {
	if c.ExpiresIn() == "" {
		return false, nil
	}
	expires, err := c.Expires()
	if err != nil || expires == nil {
		return false, err
	}
	return !c.clock.Now().Before(*expires), nil
}

func (c *AuthorizationContext) ExpiresIn() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresIn
}

// SetExpiresIn sets the expiry duration in seconds. The value is validated by
// Expires.
func (c *AuthorizationContext) SetExpiresIn(expiresIn string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiresIn = expiresIn
}

// SetClient sets the client used to look up the current user. The client
// must be usable; a nil interface is reported by IsAuthorized as ErrNoClient.
func (c *AuthorizationContext) SetClient(client restclient.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = client
}

func (c *AuthorizationContext) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SetToken replaces the token. A different token invalidates the context.
func (c *AuthorizationContext) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == c.token {
		return
	}
	c.token = token
	c.invalidateLocked()
}

func (c *AuthorizationContext) Scheme() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheme
}

// User returns the last user known to the context. It is the constructor
// hint until a lookup succeeds, and is kept across invalidation.
func (c *AuthorizationContext) User() *user.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Credentials implements restclient.CredentialSource.
func (c *AuthorizationContext) Credentials() (scheme, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheme, c.token
}
