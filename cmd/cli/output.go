package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/auth"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

// describe turns an error into the one-line message shown to the user.
func describe(err error) string {
	var denied *security.PermissionDeniedError
	switch {
	case errors.As(err, &denied):
		msg := fmt.Sprintf("permission denied: your department (%s) cannot %s", denied.Department, denied.Permission)
		if denied.Reason != "" {
			msg += " (" + denied.Reason + ")"
		}
		return msg
	case errors.Is(err, security.ErrUnauthenticated):
		return "you are not logged in or your session has expired; run \"eventcrm login <email>\""
	case errors.Is(err, service.ErrInvalidCredentials):
		return "invalid email or password"
	case errors.Is(err, service.ErrAlreadyInitialized):
		return "the CRM is already initialized"
	case errors.Is(err, auth.ErrUnsupportedAlgorithm):
		return err.Error()
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict):
		return err.Error()
	case errors.Is(err, auth.ErrRevocationUnavailable):
		return "the session store is unavailable, try again later"
	default:
		return "unexpected failure, set FLAG_DEV_ERRORS=1 for details"
	}
}

func table(w io.Writer, header string, rows func(tw *tabwriter.Writer)) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	tw.Flush()
}

func optID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printUsers(w io.Writer, users []*domain.User) {
	table(w, "ID\tNAME\tEMAIL\tDEPARTMENT", func(tw *tabwriter.Writer) {
		for _, u := range users {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.FullName, u.Email, u.Department)
		}
	})
}

func printClients(w io.Writer, clients []*domain.Client) {
	table(w, "ID\tNAME\tEMAIL\tPHONE\tCOMPANY\tSALES CONTACT", func(tw *tabwriter.Writer) {
		for _, c := range clients {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.FullName, c.Email, c.Phone, c.CompanyName, optID(c.SalesContactID))
		}
	})
}

func printContracts(w io.Writer, contracts []*domain.Contract) {
	table(w, "ID\tCLIENT\tSALES CONTACT\tAMOUNT\tREMAINING\tSIGNED", func(tw *tabwriter.Writer) {
		for _, c := range contracts {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n", c.ID, c.ClientID, optID(c.SalesContactID), money(c.Amount), money(c.RemainingAmount), yesNo(c.Signed))
		}
	})
}

func printEvents(w io.Writer, events []*domain.Event) {
	table(w, "ID\tNAME\tCONTRACT\tCLIENT\tSUPPORT\tSTART\tEND\tLOCATION\tATTENDEES", func(tw *tabwriter.Writer) {
		for _, e := range events {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%d\n",
				e.ID, e.Name, e.ContractID, e.ClientID, optID(e.SupportContactID), when(e.StartDate), when(e.EndDate), e.Location, e.Attendees)
		}
	})
}

func printEvent(w io.Writer, e *domain.Event) {
	printEvents(w, []*domain.Event{e})
	if e.Notes != "" {
		fmt.Fprintf(w, "\nNotes: %s\n", e.Notes)
	}
}
