package registry

import (
	"sort"
	"testing"
)

func TestCreateTableRejectsDuplicateName(t *testing.T) {
	r := New(64)

	if _, err := r.CreateTable("orders"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateTable("orders"); err != ErrTableAlreadyExists {
		t.Fatalf("expected ErrTableAlreadyExists, got %v", err)
	}
}

func TestGetTableReportsNotFound(t *testing.T) {
	r := New(64)
	if _, err := r.GetTable("missing"); err != ErrTableNotFound {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

func TestDropTableRemovesIt(t *testing.T) {
	r := New(64)
	r.CreateTable("orders")

	if err := r.DropTable("orders"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetTable("orders"); err != ErrTableNotFound {
		t.Fatalf("expected table to be gone, got err=%v", err)
	}
	if err := r.DropTable("orders"); err != ErrTableNotFound {
		t.Fatalf("expected dropping a missing table to report ErrTableNotFound, got %v", err)
	}
}

func TestListTablesReturnsEveryCreatedName(t *testing.T) {
	r := New(64)
	r.CreateTable("orders")
	r.CreateTable("customers")

	names := r.ListTables()
	sort.Strings(names)

	if len(names) != 2 || names[0] != "customers" || names[1] != "orders" {
		t.Fatalf("expected [customers orders], got %v", names)
	}
}
