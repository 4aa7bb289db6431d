package client_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/door-client/backend"
	"github.com/jrsteele09/door-client/client"
	"github.com/jrsteele09/door-client/identity"
	"github.com/jrsteele09/door-client/internal/config"
	autherrors "github.com/jrsteele09/door-client/internal/errors"
	"github.com/jrsteele09/door-client/internal/mockbackend"
	"github.com/jrsteele09/door-client/route"
	"github.com/jrsteele09/door-client/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	adminIDToken = "id-token-admin"
	userIDToken  = "id-token-user"
)

type testFixture struct {
	backend *mockbackend.Server
	client  *client.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	mb := mockbackend.New(
		mockbackend.WithUser(adminIDToken, mockbackend.User{Email: "admin@example.com", Name: "Ada", Role: "admin"}),
		mockbackend.WithUser(userIDToken, mockbackend.User{Email: "user@example.com", Name: "Uma", Role: "user"}),
	)
	srv := httptest.NewServer(mb)
	t.Cleanup(srv.Close)

	c, err := client.New(config.New(),
		client.WithBaseURL(srv.URL+"/api"),
		client.WithRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	return &testFixture{backend: mb, client: c}
}

func (f *testFixture) login(t *testing.T, idToken string) {
	t.Helper()
	_, err := f.client.Login(context.Background(), identity.Static{IDToken: idToken})
	require.NoError(t, err)
}

// expireLocally marks the current credential as expired on the client's clock.
func (f *testFixture) expireLocally() {
	cred := f.client.Store().Get()
	past := time.Now().Add(-time.Minute)
	cred.ExpiresAt = &past
	f.client.Store().Set(cred)
}

func statusConcurrently(f *testFixture, n int) []error {
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.client.Device.Status(context.Background())
		}(i)
	}
	wg.Wait()
	return errs
}

func TestLoginFetchesFirstCredentialByRenewal(t *testing.T) {
	f := setupTestFixture(t)

	user, err := f.client.Login(context.Background(), identity.Static{IDToken: adminIDToken})
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", user.Email)

	require.Equal(t, 1, f.backend.RenewCalls())
	require.Equal(t, session.RoleAdmin, f.client.Store().Get().Role)
	require.Equal(t, session.Valid, f.client.Store().Validity())
}

func TestLoginUsesTokenFromSessionLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.IssueTokenOnLogin(true)

	f.login(t, userIDToken)
	require.Equal(t, 0, f.backend.RenewCalls())
	require.Equal(t, session.RoleUser, f.client.Store().Get().Role)
}

func TestLoginRejectedIdentity(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.client.Login(context.Background(), identity.Static{IDToken: "stranger"})
	require.ErrorIs(t, err, autherrors.ErrAuthInvalid)
	require.False(t, f.client.Store().Get().Present())
}

func TestKnownExpiredCredentialFiveCallersOneRenewal(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, adminIDToken)
	f.backend.ExpireAccessTokens()
	f.expireLocally()
	f.backend.SetRenewDelay(100 * time.Millisecond)
	before := f.backend.RenewCalls()

	for _, err := range statusConcurrently(f, 5) {
		require.NoError(t, err)
	}

	require.Equal(t, 1, f.backend.RenewCalls()-before)
	require.Equal(t, session.RoleAdmin, f.client.Store().Get().Role)
	require.Equal(t, session.Idle, f.client.Store().RefreshState().Phase)
}

func TestServerSideExpiryFiveCallersOneRenewal(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, userIDToken)
	f.backend.ExpireAccessTokens()
	f.backend.SetRenewDelay(100 * time.Millisecond)
	before := f.backend.RenewCalls()
	stale := f.client.Store().Get().Value

	for _, err := range statusConcurrently(f, 5) {
		require.NoError(t, err)
	}

	require.Equal(t, 1, f.backend.RenewCalls()-before)
	require.NotEqual(t, stale, f.client.Store().Get().Value)
}

func TestRenewalErrorSignsOut(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, adminIDToken)
	require.Equal(t, route.Allow, f.client.Navigate(route.Settings))

	f.backend.ExpireAccessTokens()
	f.backend.FailRenewals(true)

	for _, err := range statusConcurrently(f, 3) {
		require.ErrorIs(t, err, autherrors.ErrAuthInvalid)
	}

	require.False(t, f.client.Store().Get().Present())
	require.Equal(t, session.Failed, f.client.Store().RefreshState().Phase)
	require.Equal(t, route.RedirectToLogin, f.client.Navigate(route.Settings))
	require.Equal(t, route.RedirectToLogin, f.client.Navigate(route.Control))
	require.Equal(t, route.RedirectToLogin, f.client.Navigate(route.Dashboard))
	require.Equal(t, route.Allow, f.client.Navigate(route.Login))
}

func TestRoleGatingFollowsRenewal(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, userIDToken)

	require.Equal(t, route.Allow, f.client.Navigate(route.Control))
	require.Equal(t, route.RedirectToDenied, f.client.Navigate(route.Settings))

	_, err := f.client.AllowList.List(context.Background())
	require.ErrorIs(t, err, autherrors.ErrAuthorizationDenied)
	require.True(t, f.client.Store().Get().Present())

	// Promotion shows up with the next credential
	f.backend.SetRole(userIDToken, "admin")
	f.backend.ExpireAccessTokens()

	emails, err := f.client.AllowList.List(context.Background())
	require.NoError(t, err)
	require.Contains(t, emails, "user@example.com")
	require.Equal(t, route.Allow, f.client.Navigate(route.Settings))
}

func TestLogoutClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, userIDToken)
	require.Equal(t, route.Allow, f.client.Navigate(route.Dashboard))

	require.NoError(t, f.client.Logout(context.Background()))
	require.False(t, f.client.Store().Get().Present())
	require.Equal(t, route.RedirectToLogin, f.client.Navigate(route.Dashboard))

	// The renewal cookie is gone too
	_, err := f.client.Device.Status(context.Background())
	require.ErrorIs(t, err, autherrors.ErrAuthInvalid)
}

func TestDoorWorkflow(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, adminIDToken)
	ctx := context.Background()

	user, err := f.client.Session.CheckSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "Ada", user.Name)

	res, err := f.client.Device.Control(ctx, backend.ActionOpen)
	require.NoError(t, err)
	require.Equal(t, "door opened", res.Message)

	st, err := f.client.Device.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "open", st.Door)

	_, err = f.client.Device.Control(ctx, backend.Action("smash"))
	require.ErrorIs(t, err, autherrors.ErrInvalidAction)

	page, err := f.client.AccessLog.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "admin@example.com", page.Logs[0].User)

	require.NoError(t, f.client.AccessLog.Delete(ctx, page.Logs[0].ID))
	err = f.client.AccessLog.Delete(ctx, "missing")
	require.ErrorIs(t, err, autherrors.ErrRequest)

	_, err = f.client.Device.Control(ctx, backend.ActionClose)
	require.NoError(t, err)
	require.NoError(t, f.client.AccessLog.Clear(ctx))
	page, err = f.client.AccessLog.List(ctx)
	require.NoError(t, err)
	require.Zero(t, page.Total)
}

func TestAllowListWorkflow(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, adminIDToken)
	ctx := context.Background()

	added, err := f.client.AllowList.Add(ctx, "  New.Person@Example.com ")
	require.NoError(t, err)
	require.Equal(t, "new.person@example.com", added)

	emails, err := f.client.AllowList.List(ctx)
	require.NoError(t, err)
	require.Contains(t, emails, "new.person@example.com")

	require.NoError(t, f.client.AllowList.Remove(ctx, "new.person@example.com"))
	emails, err = f.client.AllowList.List(ctx)
	require.NoError(t, err)
	require.NotContains(t, emails, "new.person@example.com")

	_, err = f.client.AllowList.Add(ctx, "not-an-email")
	require.ErrorIs(t, err, autherrors.ErrInvalidEmail)
}

func TestSignOutDuringRenewalIsNotUndone(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, adminIDToken)
	require.Equal(t, route.Allow, f.client.Navigate("/settings"))

	before := f.backend.RenewCalls()
	f.backend.SetRenewDelay(200 * time.Millisecond)
	errs := make(chan error, 1)
	go func() {
		_, err := f.client.Coordinator().Renew(context.Background())
		errs <- err
	}()
	require.Eventually(t, func() bool { return f.backend.RenewCalls() == before+1 }, time.Second, 5*time.Millisecond)

	f.client.Store().Clear()
	require.Equal(t, route.RedirectToLogin, f.client.Navigate("/settings"))

	require.ErrorIs(t, <-errs, autherrors.ErrAuthInvalid)
	require.False(t, f.client.Store().Get().Present())
	require.Equal(t, route.RedirectToLogin, f.client.Navigate("/settings"))
	require.Equal(t, session.Idle, f.client.Store().RefreshState().Phase)
}
