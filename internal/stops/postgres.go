package stops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cubny/ptfare"
)

// Query builds the query selecting the id and zone label of every stop
// table may be schema qualified, both identifiers are quoted
func Query(table, zoneAttribute string) string {
	return fmt.Sprintf("SELECT %s, COALESCE(%s::text, '') FROM %s",
		pgx.Identifier{IDColumn}.Sanitize(),
		pgx.Identifier{zoneAttribute}.Sanitize(),
		pgx.Identifier(strings.Split(table, ".")).Sanitize(),
	)
}

// LoadPostgres reads the zone label of every stop from a stops table
func LoadPostgres(ctx context.Context, dsn, table, zoneAttribute string) (ptfare.StopZoneMap, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect stops db: %w", err)
	}
	defer conn.Close(context.Background())

	rows, err := conn.Query(ctx, Query(table, zoneAttribute))
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()

	zones := make(ptfare.StopZoneMap)
	for rows.Next() {
		var id, zone string
		if err := rows.Scan(&id, &zone); err != nil {
			return nil, err
		}
		zones[id] = strings.TrimSpace(zone)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return zones, nil
}
