package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/security/auth"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

func (c *cli) initCRM(ctx context.Context, args []string) error {
	fs := c.newFlagSet("init")
	name := fs.String("name", "", "full name of the first management user")
	email := fs.String("email", "", "email of the first management user")
	passwordFile := fs.String("password-file", "", "read the password from this file instead of prompting")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *name == "" || *email == "" {
		return usageErr("init requires --name and --email")
	}

	crm, err := c.open(ctx)
	if err != nil {
		return err
	}
	pw, err := c.password(*passwordFile, "Password for "+*email+": ")
	if err != nil {
		return err
	}
	user, err := crm.Auth.Bootstrap(ctx, service.BootstrapRequest{FullName: *name, Email: *email, Password: pw})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Initialized. Management user %s created with id %d.\n", user.Email, user.ID)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.newFlagSet("login")
	passwordFile := fs.String("password-file", "", "read the password from this file instead of prompting")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErr("usage: eventcrm login <email> [--password-file FILE]")
	}
	email := fs.Arg(0)

	crm, err := c.open(ctx)
	if err != nil {
		return err
	}
	pw, err := c.password(*passwordFile, "Password: ")
	if err != nil {
		return err
	}
	result, err := crm.Auth.Login(ctx, email, pw)
	if err != nil {
		return err
	}
	if err := c.session.Save(result.Token); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Logged in as %s (%s). Session valid until %s.\n",
		result.FullName, result.Department, result.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

// logout revokes the saved token and deletes the session file. The file is
// removed even when revocation fails, so the local session always ends.
func (c *cli) logout(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return usageErr("logout takes no arguments")
	}
	tok, ok := c.session.Load()
	if !ok {
		fmt.Fprintln(c.out, "Not logged in.")
		return nil
	}

	var revokeErr error
	if crm, err := c.open(ctx); err != nil {
		revokeErr = err
	} else {
		revokeErr = crm.Auth.Logout(ctx, tok)
	}
	if err := c.session.Clear(); err != nil {
		return err
	}
	if revokeErr != nil {
		return fmt.Errorf("session file removed but the token could not be revoked: %w", revokeErr)
	}
	fmt.Fprintln(c.out, "Logged out.")
	return nil
}

// whoami decodes the saved token for display only; nothing is verified here.
func (c *cli) whoami(args []string) error {
	if len(args) > 0 {
		return usageErr("whoami takes no arguments")
	}
	tok, ok := c.session.Load()
	if !ok {
		fmt.Fprintln(c.out, "Not logged in.")
		return nil
	}
	claims, err := auth.PeekClaims(tok)
	if err != nil {
		fmt.Fprintln(c.out, "The saved session is unreadable; log in again.")
		return nil
	}
	fmt.Fprintf(c.out, "User id:    %d\nDepartment: %s\n", claims.UserID, claims.Department)
	if !claims.ExpiresAt.IsZero() {
		state := "valid until"
		if time.Now().After(claims.ExpiresAt) {
			state = "expired at"
		}
		fmt.Fprintf(c.out, "Session:    %s %s\n", state, claims.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}
