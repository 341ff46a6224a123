// Copyright 2026 The VirtualStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Maintenance CLI. Expiry is enforced lazily on every validation, so this
// exists only for hygiene: it settles lapsed PENDING invitations into
// EXPIRED and prunes long-expired API keys.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
)

func main() {
	ctx := context.Background()

	url := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		url = os.Args[1]
	}
	if url == "" {
		fmt.Fprintln(os.Stderr, "Usage: cleanup <connection-url> (or set DATABASE_URL)")
		os.Exit(1)
	}

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	tag, err := conn.Exec(ctx, `
		UPDATE invitations SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'PENDING' AND expires_at < NOW()
	`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to settle expired invitations: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Settled %d expired invitations.\n", tag.RowsAffected())

	tag, err = conn.Exec(ctx, `
		DELETE FROM api_keys
		WHERE expires_at IS NOT NULL AND expires_at < NOW() - INTERVAL '30 days'
	`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prune expired api keys: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Pruned %d expired api keys.\n", tag.RowsAffected())
}
