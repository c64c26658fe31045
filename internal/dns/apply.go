package dns

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/platform/cloudflare"
)

// Provider is the subset of the Cloudflare client the record sync needs.
type Provider interface {
	GetZoneID(ctx context.Context, zone string) (string, error)
	UpsertRecord(ctx context.Context, zoneID string, desired cloudflare.Record) (cloudflare.UpsertResult, error)
	DeleteManagedRecords(ctx context.Context, zoneID string, names []string) (int, error)
}

// Change is the outcome of syncing one record.
type Change struct {
	Record Record
	Result cloudflare.UpsertResult
}

// Apply upserts records into zone. Records are never proxied: SMTP and
// the PTR checks of receiving servers need the real addresses.
func Apply(ctx context.Context, p Provider, zone string, records []Record) ([]Change, error) {
	logger := log.FromContext(ctx)

	zoneID, err := p.GetZoneID(ctx, zone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up zone %s: %w", zone, err)
	}

	proxied := false
	changes := make([]Change, 0, len(records))
	for _, r := range records {
		desired := cloudflare.Record{
			Type:    r.Type,
			Name:    r.Name,
			Content: r.Content,
			TTL:     DefaultTTL,
			Proxied: &proxied,
			Comment: cloudflare.ManagedComment,
		}
		if r.Type == "MX" {
			prio := r.Priority
			desired.Priority = &prio
		}
		if r.Type == "TXT" || r.Type == "MX" {
			desired.Proxied = nil
		}

		result, err := p.UpsertRecord(ctx, zoneID, desired)
		if err != nil {
			return changes, fmt.Errorf("failed to upsert %s %s: %w", r.Type, r.Name, err)
		}
		logger.V(1).Info("DNS record synced", "type", r.Type, "name", r.Name, "result", string(result))
		changes = append(changes, Change{Record: r, Result: result})
	}
	return changes, nil
}

// Remove deletes the k8postal managed records at the names of records.
func Remove(ctx context.Context, p Provider, zone string, records []Record) (int, error) {
	zoneID, err := p.GetZoneID(ctx, zone)
	if err != nil {
		return 0, fmt.Errorf("failed to look up zone %s: %w", zone, err)
	}
	return p.DeleteManagedRecords(ctx, zoneID, Names(records))
}
