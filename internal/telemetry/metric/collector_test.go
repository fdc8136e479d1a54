package metric

import (
	"strings"
	"testing"
	"time"

	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

func TestInventoryCollector_EmptyUntilUpdated(t *testing.T) {
	r := NewRegistry()
	body := scrape(t, r.Handler())
	if strings.Contains(body, "pve_node_up") || strings.Contains(body, "pve_inventory_refresh_success") {
		t.Error("inventory metrics must not be exported before the first refresh")
	}
}

func TestInventoryCollector_Update(t *testing.T) {
	r := NewRegistry()
	at := time.Unix(1714564800, 0)

	r.Inventory().Update(
		[]pveapi.NodeInfo{
			{Node: "pve1", Type: "node", Status: "online", Mem: 1024},
			{Node: "pve2", Type: "node", Status: "offline"},
		},
		map[string][]pveapi.VM{
			"pve1": {
				{VMID: "100", Name: "web", Status: "running", Mem: 512, MaxMem: 2048},
				{VMID: "101", Name: "db", Status: "stopped", MaxMem: 4096},
			},
		},
		at,
	)

	body := scrape(t, r.Handler())
	for _, want := range []string{
		`pve_node_up{node="pve1"} 1`,
		`pve_node_up{node="pve2"} 0`,
		`pve_node_memory_bytes{node="pve1"} 1024`,
		`pve_vm_running{name="web",node="pve1",vmid="100"} 1`,
		`pve_vm_running{name="db",node="pve1",vmid="101"} 0`,
		`pve_vm_memory_bytes{name="web",node="pve1",vmid="100"} 512`,
		`pve_vm_max_memory_bytes{name="db",node="pve1",vmid="101"} 4096`,
		"pve_inventory_refresh_success 1",
		"pve_inventory_last_refresh_timestamp_seconds 1.7145648e+09",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}

func TestInventoryCollector_ReplaceDropsStale(t *testing.T) {
	r := NewRegistry()
	r.Inventory().Update([]pveapi.NodeInfo{{Node: "old", Status: "online"}}, nil, time.Now())
	r.Inventory().Update([]pveapi.NodeInfo{{Node: "new", Status: "online"}}, nil, time.Now())

	body := scrape(t, r.Handler())
	if strings.Contains(body, `node="old"`) {
		t.Error("stale node still exported")
	}
	if !strings.Contains(body, `pve_node_up{node="new"} 1`) {
		t.Error("expected new node")
	}
}

func TestInventoryCollector_MarkFailedKeepsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Inventory().Update([]pveapi.NodeInfo{{Node: "pve1", Status: "online"}}, nil, time.Now())
	r.Inventory().MarkFailed(time.Now())

	body := scrape(t, r.Handler())
	if !strings.Contains(body, "pve_inventory_refresh_success 0") {
		t.Error("expected failed refresh")
	}
	if !strings.Contains(body, `pve_node_up{node="pve1"} 1`) {
		t.Error("previous snapshot should be kept")
	}
}
