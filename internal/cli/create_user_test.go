package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/database"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
)

func TestCreateUserCommand_ParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing everything", nil, "missing required flags: -username, -email, -password"},
		{"bad role", []string{"-username", "a", "-email", "a@b.c", "-password", "x", "-role", "owner"}, `invalid role "owner"`},
		{"bad permission", []string{"-username", "a", "-email", "a@b.c", "-password", "x", "-perm", "catalog.fly"}, `unknown permission "catalog.fly"`},
		{"valid", []string{"-username", "a", "-email", "a@b.c", "-password", "x", "-perm", entities.PermCanMarkReturned}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCreateUserCommand().ParseFlags(tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateUserCommand_Run(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	cmd := NewCreateUserCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"-db", dbPath,
		"-username", "ann",
		"-email", "ann@example.com",
		"-password", "correct-horse-battery",
		"-perm", entities.PermCanMarkReturned,
		"-bcrypt-cost", "4",
	}))
	require.NoError(t, cmd.Run())

	// a second run reports the duplicate
	err := cmd.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	db, err := database.NewDatabase(dbPath, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	user, err := users.NewRepository(db.DB).GetUserByUsername(context.Background(), "ann")
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleMember, user.Role)
	assert.True(t, user.HasPermission(entities.PermCanMarkReturned))
	assert.False(t, user.HasPermission(entities.PermCanEdit))
}
