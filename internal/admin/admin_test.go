package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/auth"
)

func TestNextAdminID(t *testing.T) {
	assert.Equal(t, "ADMIN001", NextAdminID(""))
	assert.Equal(t, "ADMIN008", NextAdminID("ADMIN007"))
	assert.Equal(t, "ADMIN100", NextAdminID("ADMIN099"))
	assert.Equal(t, "ADMIN001", NextAdminID("garbage"))
	assert.Equal(t, "ADMIN1000", NextAdminID("ADMIN999"))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	iss := auth.NewIssuer("campusvote", "test-key")
	svc := NewService(NewMemoryStore(), iss, time.Hour, nil)

	first, err := svc.Register(ctx, Input{FirstName: "Ana", LastName: "Reyes", Email: "Ana@dorsu.edu.ph", Password: "pw123456"}, now)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN001", first.AdminID)
	assert.Equal(t, "ana@dorsu.edu.ph", first.Email)

	second, err := svc.Register(ctx, Input{FirstName: "Ben", LastName: "Cruz", Email: "ben@dorsu.edu.ph", Password: "pw123456"}, now)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN002", second.AdminID)

	_, err = svc.Register(ctx, Input{FirstName: "Ana", LastName: "Reyes", Email: "ana@dorsu.edu.ph", Password: "x"}, now)
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = svc.Register(ctx, Input{Email: "c@dorsu.edu.ph"}, now)
	assert.ErrorIs(t, err, ErrMissingField)

	sess, err := svc.Login(ctx, "ana@dorsu.edu.ph", "pw123456")
	require.NoError(t, err)
	claims, err := iss.ParseRole(sess.Token.Value, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, first.ID, claims.Subject)

	_, err = svc.Login(ctx, "ana@dorsu.edu.ph", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@dorsu.edu.ph", "pw123456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
