// Package azurecosmos is the one Backend implementation the specification
// names by provider tag ("azure-cosmos"): it stores documents in an Azure
// Cosmos DB SQL API container, partitioned by document kind.
package azurecosmos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/anthropics/memsync/internal/backend"
	"github.com/anthropics/memsync/internal/document"
)

const (
	// DefaultDatabase and DefaultContainer are used when the configuration
	// gate does not override them.
	DefaultDatabase  = "claude-mem"
	DefaultContainer = "memory-records"

	partitionKeyPath = "/kind"
)

// Backend implements backend.Backend against Azure Cosmos DB.
type Backend struct {
	cfg      backend.Config
	client   *azcosmos.Client
	database *azcosmos.DatabaseClient
	container *azcosmos.ContainerClient

	fingerprint string
}

// item is the wire shape persisted in Cosmos: Document plus the mandatory
// "id" and partition key fields Cosmos itself requires.
type item struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	SortEpoch      int64  `json:"sortEpoch"`
	UpdatedAtEpoch int64  `json:"updatedAtEpoch"`
	Payload        any    `json:"payload"`
}

// New constructs a Cosmos-backed Backend. Credentials in cfg.Credentials
// are opaque to the engine: either "accountKey" (key-based auth) or
// nothing, in which case azidentity.DefaultAzureCredential is used.
func New(cfg backend.Config) (backend.Backend, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Container == "" {
		cfg.Container = DefaultContainer
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("azurecosmos: build client: %w", err)
	}

	fp, err := backend.Fingerprint(backend.Target{
		Provider:  cfg.Provider,
		Endpoint:  cfg.Endpoint,
		Database:  cfg.Database,
		Container: cfg.Container,
	})
	if err != nil {
		return nil, fmt.Errorf("azurecosmos: fingerprint: %w", err)
	}

	b := &Backend{cfg: cfg, client: client, fingerprint: fp}
	return b, nil
}

func newClient(cfg backend.Config) (*azcosmos.Client, error) {
	opts := &azcosmos.ClientOptions{ClientOptions: azcore.ClientOptions{}}

	if key, ok := cfg.Credentials["accountKey"]; ok && key != "" {
		keyCred, err := azcosmos.NewKeyCredential(key)
		if err != nil {
			return nil, fmt.Errorf("key credential: %w", err)
		}
		return azcosmos.NewClientWithKey(cfg.Endpoint, keyCred, opts)
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default credential: %w", err)
	}
	return azcosmos.NewClient(cfg.Endpoint, cred, opts)
}

// Initialize ensures the database and container exist, partitioned by kind.
func (b *Backend) Initialize(ctx context.Context) error {
	dbProps := azcosmos.DatabaseProperties{ID: b.cfg.Database}
	dbResp, err := b.client.CreateDatabase(ctx, dbProps, nil)
	if err != nil && !isConflict(err) {
		return fmt.Errorf("azurecosmos: create database: %w", err)
	}
	_ = dbResp

	database, err := b.client.NewDatabase(b.cfg.Database)
	if err != nil {
		return fmt.Errorf("azurecosmos: database client: %w", err)
	}
	b.database = database

	containerProps := azcosmos.ContainerProperties{
		ID: b.cfg.Container,
		PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
			Paths: []string{partitionKeyPath},
		},
	}
	throughput := azcosmos.NewManualThroughputProperties(400)
	_, err = database.CreateContainer(ctx, containerProps, &azcosmos.CreateContainerOptions{ThroughputProperties: &throughput})
	if err != nil && !isConflict(err) {
		return fmt.Errorf("azurecosmos: create container: %w", err)
	}

	container, err := database.NewContainer(b.cfg.Container)
	if err != nil {
		return fmt.Errorf("azurecosmos: container client: %w", err)
	}
	b.container = container
	return nil
}

// UpsertDocuments writes each document keyed by id, partitioned by kind.
func (b *Backend) UpsertDocuments(ctx context.Context, docs []document.Document) error {
	for _, d := range docs {
		pk := azcosmos.NewPartitionKeyString(string(d.Kind))
		body, err := json.Marshal(item{ID: d.ID, Kind: string(d.Kind), SortEpoch: d.SortEpoch, UpdatedAtEpoch: d.UpdatedAtEpoch, Payload: d.Payload})
		if err != nil {
			return fmt.Errorf("azurecosmos: marshal %s: %w", d.ID, err)
		}
		if _, err := b.container.UpsertItem(ctx, pk, body, nil); err != nil {
			return fmt.Errorf("azurecosmos: upsert %s: %w", d.ID, err)
		}
	}
	return nil
}

// FetchDocumentsUpdatedSince queries across all partitions for documents
// newer than epoch, ascending by updatedAtEpoch.
func (b *Backend) FetchDocumentsUpdatedSince(ctx context.Context, epoch int64) ([]document.Document, error) {
	query := "SELECT * FROM c WHERE c.updatedAtEpoch > @epoch ORDER BY c.updatedAtEpoch ASC"
	opts := &azcosmos.QueryOptions{
		QueryParameters: []azcosmos.QueryParameter{{Name: "@epoch", Value: epoch}},
	}

	// The container is partitioned by kind ("session", "prompt",
	// "observation", "summary"); a zero-value PartitionKey fans the query
	// out across all of them instead of scoping to one logical partition.
	pager := b.container.NewQueryItemsPager(query, azcosmos.PartitionKey{}, opts)

	var out []document.Document
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azurecosmos: query page: %w", err)
		}
		for _, raw := range page.Items {
			var it item
			if err := json.Unmarshal(raw, &it); err != nil {
				return nil, fmt.Errorf("azurecosmos: decode item: %w", err)
			}
			out = append(out, document.Document{
				ID:             it.ID,
				Kind:           document.Kind(it.Kind),
				SortEpoch:      it.SortEpoch,
				UpdatedAtEpoch: it.UpdatedAtEpoch,
				Payload:        it.Payload,
			})
		}
	}
	return out, nil
}

// Close is a no-op: the Cosmos SDK client owns no releasable resources
// beyond its underlying HTTP transport.
func (b *Backend) Close(ctx context.Context) error { return nil }

// Label identifies this backend in logs.
func (b *Backend) Label() string {
	return fmt.Sprintf("azure-cosmos:%s/%s", b.cfg.Database, b.cfg.Container)
}

// TargetFingerprint returns the stable state-file key for this target.
func (b *Backend) TargetFingerprint() string { return b.fingerprint }

func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == 409
	}
	return false
}

var _ backend.Backend = (*Backend)(nil)
