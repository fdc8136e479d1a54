package metric

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

// InventoryCollector exports the last cluster inventory snapshot.
//
// Values are held between scrapes; Update replaces the whole snapshot so
// nodes and guests that disappear stop being reported.
type InventoryCollector struct {
	mu      sync.RWMutex
	nodes   []pveapi.NodeInfo
	vms     map[string][]pveapi.VM
	updated time.Time
	failed  bool

	nodeUp      *prometheus.Desc
	nodeMem     *prometheus.Desc
	vmRunning   *prometheus.Desc
	vmMem       *prometheus.Desc
	vmMaxMem    *prometheus.Desc
	lastRefresh *prometheus.Desc
	refreshOK   *prometheus.Desc
}

// NewInventoryCollector creates an empty collector.
func NewInventoryCollector() *InventoryCollector {
	return &InventoryCollector{
		nodeUp: prometheus.NewDesc("pve_node_up",
			"Whether the node is online (1) or not (0).", []string{"node"}, nil),
		nodeMem: prometheus.NewDesc("pve_node_memory_bytes",
			"Memory in use on the node.", []string{"node"}, nil),
		vmRunning: prometheus.NewDesc("pve_vm_running",
			"Whether the guest is running (1) or not (0).", []string{"node", "vmid", "name"}, nil),
		vmMem: prometheus.NewDesc("pve_vm_memory_bytes",
			"Memory in use by the guest.", []string{"node", "vmid", "name"}, nil),
		vmMaxMem: prometheus.NewDesc("pve_vm_max_memory_bytes",
			"Memory assigned to the guest.", []string{"node", "vmid", "name"}, nil),
		lastRefresh: prometheus.NewDesc("pve_inventory_last_refresh_timestamp_seconds",
			"Unix time of the last inventory refresh attempt.", nil, nil),
		refreshOK: prometheus.NewDesc("pve_inventory_refresh_success",
			"Whether the last inventory refresh succeeded.", nil, nil),
	}
}

// Update replaces the snapshot. vms is keyed by node name.
func (c *InventoryCollector) Update(nodes []pveapi.NodeInfo, vms map[string][]pveapi.VM, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = append([]pveapi.NodeInfo(nil), nodes...)
	c.vms = make(map[string][]pveapi.VM, len(vms))
	for node, list := range vms {
		c.vms[node] = append([]pveapi.VM(nil), list...)
	}
	c.updated = at
	c.failed = false
}

// MarkFailed records a failed refresh and keeps the previous snapshot.
func (c *InventoryCollector) MarkFailed(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updated = at
	c.failed = true
}

// Describe implements prometheus.Collector.
func (c *InventoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodeUp
	ch <- c.nodeMem
	ch <- c.vmRunning
	ch <- c.vmMem
	ch <- c.vmMaxMem
	ch <- c.lastRefresh
	ch <- c.refreshOK
}

// Collect implements prometheus.Collector.
func (c *InventoryCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.updated.IsZero() {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.lastRefresh, prometheus.GaugeValue, float64(c.updated.Unix()))
	ch <- prometheus.MustNewConstMetric(c.refreshOK, prometheus.GaugeValue, boolValue(!c.failed))

	for _, n := range c.nodes {
		ch <- prometheus.MustNewConstMetric(c.nodeUp, prometheus.GaugeValue, boolValue(n.Online()), n.Node)
		ch <- prometheus.MustNewConstMetric(c.nodeMem, prometheus.GaugeValue, float64(n.Mem), n.Node)
	}
	for node, list := range c.vms {
		for _, vm := range list {
			labels := []string{node, vm.VMID.String(), vm.Name}
			ch <- prometheus.MustNewConstMetric(c.vmRunning, prometheus.GaugeValue, boolValue(vm.Running()), labels...)
			ch <- prometheus.MustNewConstMetric(c.vmMem, prometheus.GaugeValue, float64(vm.Mem), labels...)
			ch <- prometheus.MustNewConstMetric(c.vmMaxMem, prometheus.GaugeValue, float64(vm.MaxMem), labels...)
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
