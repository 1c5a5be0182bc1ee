package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// permissionList collects repeated -perm flags.
type permissionList []string

func (p *permissionList) String() string { return strings.Join(*p, ",") }

func (p *permissionList) Set(value string) error {
	for _, perm := range entities.DefaultPermissions {
		if perm.Codename == value {
			*p = append(*p, value)
			return nil
		}
	}
	return fmt.Errorf("unknown permission %q", value)
}

// CreateUserCommand adds an account to the catalog from the command line,
// optionally granting extra permissions.
type CreateUserCommand struct {
	DatabasePath string
	Username     string
	Email        string
	Password     string
	Role         string
	Permissions  permissionList
	BcryptCost   int
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.Username, "username", "", "Login name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password, at least 12 characters (required)")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleMember), "Role: admin, librarian or member")
	fs.Var(&cmd.Permissions, "perm", "Extra permission codename, may be repeated")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", 12, "bcrypt cost factor")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a catalog account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -username admin -email admin@example.com -password s3cretpass -role admin\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s create-user -username ann -email ann@example.com -password s3cretpass -perm %s\n", os.Args[0], entities.PermCanMarkReturned)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	var missing []string
	if cmd.Username == "" {
		missing = append(missing, "-username")
	}
	if cmd.Email == "" {
		missing = append(missing, "-email")
	}
	if cmd.Password == "" {
		missing = append(missing, "-password")
	}
	if len(missing) > 0 {
		fs.Usage()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	if !entities.IsValidRole(entities.UserRole(cmd.Role)) {
		return fmt.Errorf("invalid role %q", cmd.Role)
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewDatabase(cmd.DatabasePath, zap.NewNop())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	service := auth.NewService(users.NewRepository(db.DB), config.Auth{
		Mode:       config.AuthModeLocal,
		BcryptCost: cmd.BcryptCost,
	}, clock.New(nil))

	user, err := service.CreateUser(ctx, cmd.Username, cmd.Email, cmd.Password, entities.UserRole(cmd.Role))
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return fmt.Errorf("user %q already exists", cmd.Username)
		}
		return err
	}

	for _, perm := range cmd.Permissions {
		if err := service.GrantPermission(ctx, user.ID, perm); err != nil {
			return fmt.Errorf("failed to grant %s: %w", perm, err)
		}
	}

	fmt.Printf("Created %s %q (id %d)\n", user.Role, user.Username, user.ID)
	if len(cmd.Permissions) > 0 {
		fmt.Printf("Granted: %s\n", cmd.Permissions.String())
	}
	return nil
}
