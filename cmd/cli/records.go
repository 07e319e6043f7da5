package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

func parseID(fs *pflag.FlagSet, what string) (int64, error) {
	if fs.NArg() != 1 {
		return 0, usageErr("expected exactly one %s id", what)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErr("invalid %s id %q", what, fs.Arg(0))
	}
	return id, nil
}

func pageFlags(fs *pflag.FlagSet) (limit, offset *int) {
	limit = fs.Int("limit", 0, "maximum rows to show (default 50)")
	offset = fs.Int("offset", 0, "rows to skip")
	return limit, offset
}

func page(limit, offset *int) (domain.Page, error) {
	if *limit < 0 || *offset < 0 {
		return domain.Page{}, usageErr("--limit and --offset must be non-negative")
	}
	return domain.Page{Limit: *limit, Offset: *offset}, nil
}

// changedString returns a pointer to the flag value when the flag was given.
func changedString(fs *pflag.FlagSet, name string, v *string) *string {
	if fs.Changed(name) {
		return v
	}
	return nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

func parseTime(flag, raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(raw), time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, usageErr("--%s: cannot parse %q (use YYYY-MM-DD HH:MM)", flag, raw)
}

func subcommand(args []string, usage string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, usageErr("%s", usage)
	}
	return args[0], args[1:], nil
}

// user

func (c *cli) userCommand(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args, "usage: eventcrm user <list|get|create|update|delete>")
	if err != nil {
		return err
	}
	fs := c.newFlagSet("user " + sub)
	crm := func() (*service.UserService, error) {
		a, err := c.open(ctx)
		if err != nil {
			return nil, err
		}
		return a.Users, nil
	}

	switch sub {
	case "list":
		dept := fs.String("department", "", "only users of this department")
		limit, offset := pageFlags(fs)
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		filter := domain.UserFilter{}
		if filter.Page, err = page(limit, offset); err != nil {
			return err
		}
		if *dept != "" {
			if filter.Department, err = domain.ParseDepartment(*dept); err != nil {
				return err
			}
		}
		users, err := crm()
		if err != nil {
			return err
		}
		out, err := users.List(ctx, c.token(), filter)
		if err != nil {
			return err
		}
		printUsers(c.out, out)
	case "get":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "user")
		if err != nil {
			return err
		}
		users, err := crm()
		if err != nil {
			return err
		}
		u, err := users.Get(ctx, c.token(), id)
		if err != nil {
			return err
		}
		printUsers(c.out, []*domain.User{u})
	case "create":
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "email address")
		dept := fs.String("department", "", "commercial, support or gestion")
		passwordFile := fs.String("password-file", "", "read the password from this file instead of prompting")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		users, err := crm()
		if err != nil {
			return err
		}
		pw, err := c.password(*passwordFile, "Password for "+*email+": ")
		if err != nil {
			return err
		}
		u, err := users.Create(ctx, c.token(), service.NewUser{FullName: *name, Email: *email, Password: pw, Department: *dept})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "User %d created.\n", u.ID)
	case "update":
		name := fs.String("name", "", "new full name")
		email := fs.String("email", "", "new email address")
		dept := fs.String("department", "", "new department")
		newPassword := fs.Bool("password", false, "prompt for a new password")
		passwordFile := fs.String("password-file", "", "read the new password from this file")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "user")
		if err != nil {
			return err
		}
		users, err := crm()
		if err != nil {
			return err
		}
		upd := service.UserUpdate{
			FullName:   changedString(fs, "name", name),
			Email:      changedString(fs, "email", email),
			Department: changedString(fs, "department", dept),
		}
		if *newPassword || *passwordFile != "" {
			pw, err := c.password(*passwordFile, "New password: ")
			if err != nil {
				return err
			}
			upd.Password = &pw
		}
		if _, err := users.Update(ctx, c.token(), id, upd); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "User %d updated.\n", id)
	case "delete":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "user")
		if err != nil {
			return err
		}
		users, err := crm()
		if err != nil {
			return err
		}
		if err := users.Delete(ctx, c.token(), id); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "User %d deleted.\n", id)
	default:
		return usageErr("unknown user command %q", sub)
	}
	return nil
}

// client

func (c *cli) clientCommand(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args, "usage: eventcrm client <list|get|create|update|delete>")
	if err != nil {
		return err
	}
	fs := c.newFlagSet("client " + sub)
	crm := func() (*service.ClientService, error) {
		a, err := c.open(ctx)
		if err != nil {
			return nil, err
		}
		return a.Clients, nil
	}

	switch sub {
	case "list":
		mine := fs.Bool("mine", false, "only clients you are the sales contact of")
		limit, offset := pageFlags(fs)
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		p, err := page(limit, offset)
		if err != nil {
			return err
		}
		clients, err := crm()
		if err != nil {
			return err
		}
		out, err := clients.List(ctx, c.token(), service.ClientListOptions{Page: p, Mine: *mine})
		if err != nil {
			return err
		}
		printClients(c.out, out)
	case "get":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "client")
		if err != nil {
			return err
		}
		clients, err := crm()
		if err != nil {
			return err
		}
		cl, err := clients.Get(ctx, c.token(), id)
		if err != nil {
			return err
		}
		printClients(c.out, []*domain.Client{cl})
	case "create":
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "email address")
		phone := fs.String("phone", "", "phone number")
		company := fs.String("company", "", "company name")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		clients, err := crm()
		if err != nil {
			return err
		}
		cl, err := clients.Create(ctx, c.token(), service.NewClient{FullName: *name, Email: *email, Phone: *phone, CompanyName: *company})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Client %d created.\n", cl.ID)
	case "update":
		name := fs.String("name", "", "new full name")
		email := fs.String("email", "", "new email address")
		phone := fs.String("phone", "", "new phone number")
		company := fs.String("company", "", "new company name")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "client")
		if err != nil {
			return err
		}
		clients, err := crm()
		if err != nil {
			return err
		}
		_, err = clients.Update(ctx, c.token(), id, domain.ClientUpdate{
			FullName:    changedString(fs, "name", name),
			Email:       changedString(fs, "email", email),
			Phone:       changedString(fs, "phone", phone),
			CompanyName: changedString(fs, "company", company),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Client %d updated.\n", id)
	case "delete":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "client")
		if err != nil {
			return err
		}
		clients, err := crm()
		if err != nil {
			return err
		}
		if err := clients.Delete(ctx, c.token(), id); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Client %d deleted.\n", id)
	default:
		return usageErr("unknown client command %q", sub)
	}
	return nil
}

// contract

func (c *cli) contractCommand(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args, "usage: eventcrm contract <list|get|create|update|delete>")
	if err != nil {
		return err
	}
	fs := c.newFlagSet("contract " + sub)
	crm := func() (*service.ContractService, error) {
		a, err := c.open(ctx)
		if err != nil {
			return nil, err
		}
		return a.Contracts, nil
	}

	switch sub {
	case "list":
		mine := fs.Bool("mine", false, "only contracts of your clients")
		unsigned := fs.Bool("unsigned", false, "only unsigned contracts")
		unpaid := fs.Bool("unpaid", false, "only contracts with a remaining amount")
		client := fs.Int64("client", 0, "only contracts of this client")
		limit, offset := pageFlags(fs)
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		p, err := page(limit, offset)
		if err != nil {
			return err
		}
		opts := service.ContractListOptions{Page: p, Mine: *mine, Unsigned: *unsigned, Unpaid: *unpaid}
		if fs.Changed("client") {
			opts.ClientID = client
		}
		contracts, err := crm()
		if err != nil {
			return err
		}
		out, err := contracts.List(ctx, c.token(), opts)
		if err != nil {
			return err
		}
		printContracts(c.out, out)
	case "get":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "contract")
		if err != nil {
			return err
		}
		contracts, err := crm()
		if err != nil {
			return err
		}
		ct, err := contracts.Get(ctx, c.token(), id)
		if err != nil {
			return err
		}
		printContracts(c.out, []*domain.Contract{ct})
	case "create":
		client := fs.Int64("client", 0, "client id")
		amount := fs.Float64("amount", 0, "total amount")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		contracts, err := crm()
		if err != nil {
			return err
		}
		ct, err := contracts.Create(ctx, c.token(), service.NewContract{ClientID: *client, Amount: *amount})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Contract %d created (unsigned).\n", ct.ID)
	case "update":
		amount := fs.Float64("amount", 0, "new total amount")
		remaining := fs.Float64("remaining", 0, "new remaining amount")
		sign := fs.Bool("sign", false, "mark the contract as signed")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "contract")
		if err != nil {
			return err
		}
		upd := domain.ContractUpdate{}
		if fs.Changed("amount") {
			upd.Amount = amount
		}
		if fs.Changed("remaining") {
			upd.RemainingAmount = remaining
		}
		if fs.Changed("sign") {
			upd.Signed = sign
		}
		contracts, err := crm()
		if err != nil {
			return err
		}
		ct, err := contracts.Update(ctx, c.token(), id, upd)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Contract %d updated.\n", ct.ID)
	case "delete":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "contract")
		if err != nil {
			return err
		}
		contracts, err := crm()
		if err != nil {
			return err
		}
		if err := contracts.Delete(ctx, c.token(), id); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Contract %d deleted.\n", id)
	default:
		return usageErr("unknown contract command %q", sub)
	}
	return nil
}

// event

func (c *cli) eventCommand(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args, "usage: eventcrm event <list|get|create|update|assign|delete>")
	if err != nil {
		return err
	}
	fs := c.newFlagSet("event " + sub)
	crm := func() (*service.EventService, error) {
		a, err := c.open(ctx)
		if err != nil {
			return nil, err
		}
		return a.Events, nil
	}

	switch sub {
	case "list":
		mine := fs.Bool("mine", false, "only events you are the support contact of")
		withoutSupport := fs.Bool("without-support", false, "only events with no support contact")
		contract := fs.Int64("contract", 0, "only events of this contract")
		limit, offset := pageFlags(fs)
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		p, err := page(limit, offset)
		if err != nil {
			return err
		}
		opts := service.EventListOptions{Page: p, Mine: *mine, WithoutSupport: *withoutSupport}
		if fs.Changed("contract") {
			opts.ContractID = contract
		}
		events, err := crm()
		if err != nil {
			return err
		}
		out, err := events.List(ctx, c.token(), opts)
		if err != nil {
			return err
		}
		printEvents(c.out, out)
	case "get":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "event")
		if err != nil {
			return err
		}
		events, err := crm()
		if err != nil {
			return err
		}
		e, err := events.Get(ctx, c.token(), id)
		if err != nil {
			return err
		}
		printEvent(c.out, e)
	case "create":
		contract := fs.Int64("contract", 0, "contract id")
		name := fs.String("name", "", "event name")
		start := fs.String("start", "", "start, YYYY-MM-DD HH:MM")
		end := fs.String("end", "", "end, YYYY-MM-DD HH:MM")
		location := fs.String("location", "", "venue")
		attendees := fs.Int("attendees", 0, "expected attendees")
		notes := fs.String("notes", "", "free-form notes")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		in := service.NewEvent{ContractID: *contract, Name: *name, Location: *location, Attendees: *attendees, Notes: *notes}
		if in.StartDate, err = parseTime("start", *start); err != nil {
			return err
		}
		if in.EndDate, err = parseTime("end", *end); err != nil {
			return err
		}
		events, err := crm()
		if err != nil {
			return err
		}
		e, err := events.Create(ctx, c.token(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Event %d created.\n", e.ID)
	case "update":
		name := fs.String("name", "", "new name")
		start := fs.String("start", "", "new start, YYYY-MM-DD HH:MM")
		end := fs.String("end", "", "new end, YYYY-MM-DD HH:MM")
		location := fs.String("location", "", "new venue")
		attendees := fs.Int("attendees", 0, "new attendee count")
		notes := fs.String("notes", "", "new notes")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "event")
		if err != nil {
			return err
		}
		upd := domain.EventUpdate{
			Name:     changedString(fs, "name", name),
			Location: changedString(fs, "location", location),
			Notes:    changedString(fs, "notes", notes),
		}
		if fs.Changed("attendees") {
			upd.Attendees = attendees
		}
		if fs.Changed("start") {
			t, err := parseTime("start", *start)
			if err != nil {
				return err
			}
			upd.StartDate = &t
		}
		if fs.Changed("end") {
			t, err := parseTime("end", *end)
			if err != nil {
				return err
			}
			upd.EndDate = &t
		}
		events, err := crm()
		if err != nil {
			return err
		}
		if _, err := events.Update(ctx, c.token(), id, upd); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Event %d updated.\n", id)
	case "assign":
		support := fs.Int64("support", 0, "id of the support user to assign")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "event")
		if err != nil {
			return err
		}
		if *support <= 0 {
			return usageErr("assign requires --support <user id>")
		}
		events, err := crm()
		if err != nil {
			return err
		}
		if _, err := events.AssignSupport(ctx, c.token(), id, *support); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Event %d assigned to support user %d.\n", id, *support)
	case "delete":
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		id, err := parseID(fs, "event")
		if err != nil {
			return err
		}
		events, err := crm()
		if err != nil {
			return err
		}
		if err := events.Delete(ctx, c.token(), id); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Event %d deleted.\n", id)
	default:
		return usageErr("unknown event command %q", sub)
	}
	return nil
}
