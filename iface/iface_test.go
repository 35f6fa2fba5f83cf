package iface_test

import (
	"testing"

	"github.com/plaidnet/srouter/iface"
)

func TestInventoryLookups(t *testing.T) {
	inv := iface.NewInventory([]iface.Interface{
		{Name: "eth0", MAC: [6]byte{1}, IPv4: [4]byte{10, 0, 0, 1}},
		{Name: "eth1", MAC: [6]byte{2}, IPv4: [4]byte{10, 1, 0, 1}},
	})

	got, ok := inv.ByName("eth0")
	if !ok || got.IPv4 != [4]byte{10, 0, 0, 1} {
		t.Fatalf("ByName(eth0) = %+v, %v", got, ok)
	}

	got, ok = inv.ByIPv4([4]byte{10, 1, 0, 1})
	if !ok || got.Name != "eth1" {
		t.Fatalf("ByIPv4(10.1.0.1) = %+v, %v", got, ok)
	}

	if _, ok := inv.ByName("eth2"); ok {
		t.Fatal("expected ByName(eth2) to miss")
	}
	if _, ok := inv.ByIPv4([4]byte{1, 2, 3, 4}); ok {
		t.Fatal("expected ByIPv4 miss for unconfigured address")
	}

	if len(inv.All()) != 2 {
		t.Fatalf("got %d interfaces, want 2", len(inv.All()))
	}
}

func TestInventoryPanicsOnDuplicateName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate interface name")
		}
	}()
	iface.NewInventory([]iface.Interface{
		{Name: "eth0", IPv4: [4]byte{10, 0, 0, 1}},
		{Name: "eth0", IPv4: [4]byte{10, 0, 0, 2}},
	})
}
