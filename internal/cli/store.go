package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-json"

	"github.com/surrealdb/surrealrecord/internal/config"
	"github.com/surrealdb/surrealrecord/pkg/constants"
	"github.com/surrealdb/surrealrecord/pkg/logger"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store"
	"github.com/surrealdb/surrealrecord/pkg/store/memstore"
	"github.com/surrealdb/surrealrecord/pkg/store/postgres"
	"github.com/surrealdb/surrealrecord/pkg/store/surrealstore"
)

// seedFile is the memory driver's on-disk format: elements grouped by
// container, each with its ID and optional PROPERTIES.
type seedFile map[models.ContainerID][]models.Fields

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSurrealDB:
		return surrealstore.Open(ctx, surrealstore.Config{
			Endpoint:  cfg.Surreal.Endpoint,
			Namespace: cfg.Surreal.Namespace,
			Database:  cfg.Surreal.Database,
			Username:  cfg.Surreal.Username,
			Password:  cfg.Surreal.Password,
		}, log)
	case config.DriverPostgres:
		st, err := postgres.Open(ctx, cfg.Postgres.DSN, log)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.Migrate {
			if err := st.Migrate(ctx); err != nil {
				_ = st.Close()
				return nil, err
			}
		}
		return st, nil
	case config.DriverMemory:
		st := memstore.New()
		if cfg.Seed == "" {
			return st, nil
		}
		if err := loadSeed(cfg.Seed, st); err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("%w: %q", constants.ErrUnknownDriver, cfg.Driver)
}

// loadSeed fills st from path. A missing file is an empty store.
func loadSeed(path string, st *memstore.Store) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for cid, rows := range seed {
		for i, row := range rows {
			id, ok := row[constants.FieldID]
			if !ok {
				return fmt.Errorf("%w: element %d of %s has no %s", constants.ErrConstruction, i, cid, constants.FieldID)
			}
			if _, err := st.Insert(cid, seedID(id), row, nil); err != nil {
				return fmt.Errorf("failed to seed %s: %w", cid, err)
			}
		}
	}
	return nil
}

// writeSeed stores every element of st back into path.
func writeSeed(path string, st *memstore.Store) error {
	all, err := st.Export()
	if err != nil {
		return err
	}

	seed := make(seedFile, len(all))
	for cid, rows := range all {
		for _, row := range rows {
			delete(row, constants.FieldContainerID)
			delete(row, constants.FieldPropertyValues)
			seed[cid] = append(seed[cid], row)
		}
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode seed file: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write seed file: %w", err)
	}
	return nil
}

// seedID turns JSON numbers back into integer ids.
func seedID(id any) any {
	if f, ok := id.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return id
}
