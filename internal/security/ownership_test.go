package security

import (
	"context"
	"errors"
	"testing"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
)

func owned(id int64) *domain.Client {
	return &domain.Client{ID: 100 + id, SalesContactID: &id}
}

func TestCanUpdateContract(t *testing.T) {
	commercial := Identity{UserID: 1, Department: domain.DepartmentCommercial}
	manager := Identity{UserID: 9, Department: domain.DepartmentManagement}
	support := Identity{UserID: 1, Department: domain.DepartmentSupport}

	mineClient, theirClient := owned(1), owned(2)
	mine := &domain.Contract{ID: 1, ClientID: mineClient.ID}
	theirs := &domain.Contract{ID: 2, ClientID: theirClient.ID}

	if !CanUpdateContract(commercial, mine, mineClient) {
		t.Fatalf("commercial should update contracts of own client")
	}
	if CanUpdateContract(commercial, theirs, theirClient) {
		t.Fatalf("commercial must not update contracts of other clients")
	}
	if !CanUpdateContract(manager, mine, mineClient) || !CanUpdateContract(manager, theirs, theirClient) {
		t.Fatalf("management should update every contract")
	}
	if CanUpdateContract(support, mine, mineClient) {
		t.Fatalf("support must not update contracts")
	}
	if CanUpdateContract(commercial, theirs, mineClient) {
		t.Fatalf("a client that is not the contract's client must not grant ownership")
	}
}

func TestCanManageClientAndCreateEvent(t *testing.T) {
	commercial := Identity{UserID: 3, Department: domain.DepartmentCommercial}
	orphan := &domain.Client{ID: 5}
	if !CanManageClient(commercial, owned(3)) || CanManageClient(commercial, owned(4)) || CanManageClient(commercial, orphan) {
		t.Fatalf("unexpected client ownership result")
	}
	if !CanCreateEventFor(commercial, owned(3)) || CanCreateEventFor(commercial, owned(4)) {
		t.Fatalf("unexpected event creation result")
	}
	support := Identity{UserID: 3, Department: domain.DepartmentSupport}
	if CanManageClient(support, owned(3)) || CanCreateEventFor(support, owned(3)) {
		t.Fatalf("support owns no clients")
	}
}

func TestEventUpdateAllowed(t *testing.T) {
	assignee := int64(20)
	event := &domain.Event{ID: 1, SupportContactID: &assignee}
	notes := "ok"
	location := "Hall B"

	support := Identity{UserID: 20, Department: domain.DepartmentSupport}
	stranger := Identity{UserID: 21, Department: domain.DepartmentSupport}
	manager := Identity{UserID: 1, Department: domain.DepartmentManagement}
	commercial := Identity{UserID: 2, Department: domain.DepartmentCommercial}

	cases := []struct {
		name string
		id   Identity
		upd  domain.EventUpdate
		want bool
	}{
		{"support notes", support, domain.EventUpdate{Notes: &notes}, true},
		{"support notes and location", support, domain.EventUpdate{Notes: &notes, Location: &location}, false},
		{"support location", support, domain.EventUpdate{Location: &location}, false},
		{"unassigned support", stranger, domain.EventUpdate{Notes: &notes}, false},
		{"management anything", manager, domain.EventUpdate{Notes: &notes, Location: &location}, true},
		{"commercial", commercial, domain.EventUpdate{Notes: &notes}, false},
	}
	for _, tc := range cases {
		if got := EventUpdateAllowed(tc.id, event, tc.upd); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestValidateResourceAccess(t *testing.T) {
	oc := NewOwnershipChecker(nil, nil)
	id := Identity{UserID: 4, Department: domain.DepartmentCommercial}

	if err := oc.ValidateResourceAccess(context.Background(), id, PermUpdateClient, 7, true, ""); err != nil {
		t.Fatalf("expected access, got %v", err)
	}
	err := oc.ValidateResourceAccess(context.Background(), id, PermUpdateClient, 7, false, "not the client's sales contact")
	var denied *PermissionDeniedError
	if !errors.As(err, &denied) || denied.Reason != "not the client's sales contact" || denied.SubjectID != 4 {
		t.Fatalf("unexpected denial %v", err)
	}
}
