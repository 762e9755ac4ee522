package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	replicationSlotQueryLegacy = "SELECT database, slot_name, slot_type, active, pg_current_xlog_location() - restart_lsn AS wal_retain_bytes FROM pg_replication_slots"
	replicationSlotQueryLatest = "SELECT database, slot_name, slot_type, active, pg_current_wal_lsn() - restart_lsn AS wal_retain_bytes FROM pg_replication_slots"
)

var replicationSlotLabels = []string{"database", "slot_name", "slot_type", "active"}

// NewPostgresReplicationSlotFactory returns a Factory exposing WAL retained
// by each replication slot (spec §6 pg_replication_slots), gated on slot
// support rather than version since the view predates pg_current_wal_lsn.
func NewPostgresReplicationSlotFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "replication_slot", "wal_retain_bytes"),
				"Number of WAL retained and required by the consumer of this slot, in bytes.", replicationSlotLabels, constLabels),
		}

		return registry.Definition{
			Name:  "pg_replication_slot",
			Descs: descs,
			Variants: []registry.Variant{
				{
					Predicate: func(c model.Capabilities) bool { return c.HasReplicationSlots && c.AtLeast(model.PostgresV10) },
					SQL:       replicationSlotQueryLatest,
					Project:   labelRowProjector(replicationSlotLabels, []columnMetric{{column: "wal_retain_bytes", desc: 0, valueType: prometheus.GaugeValue}}),
				},
				{
					Predicate: func(c model.Capabilities) bool { return c.HasReplicationSlots },
					SQL:       replicationSlotQueryLegacy,
					Project:   labelRowProjector(replicationSlotLabels, []columnMetric{{column: "wal_retain_bytes", desc: 0, valueType: prometheus.GaugeValue}}),
				},
			},
		}
	}
}
