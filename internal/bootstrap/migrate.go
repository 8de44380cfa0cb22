package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are idempotent; they run on every startup.
var migrations = []string{
	`create table if not exists users (
		id bigserial primary key,
		email text unique not null,
		password_hash text not null,
		name text,
		created_at timestamptz not null default now()
	);`,
	`create table if not exists projects (
		id bigserial primary key,
		owner_user_id bigint not null references users(id),
		original_repo_url text,
		bot_repo_full_name text not null,
		title text,
		description text,
		category text,
		languages text[],
		reason_halted text,
		documentation_url text,
		demo_url text,
		s3_object_key text,
		s3_object_url text,
		source_type text,
		ai_summary text,
		ai_health jsonb,
		ai_next_steps jsonb,
		ai_last_generated_at timestamptz,
		keywords text[],
		created_at timestamptz not null default now()
	);`,
	`create table if not exists ai_reports (
		id bigserial primary key,
		project_id bigint not null references projects(id),
		report jsonb not null,
		created_at timestamptz not null default now()
	);`,
	`create table if not exists adoptions (
		id bigserial primary key,
		project_id bigint not null references projects(id),
		adopter_user_id bigint not null references users(id),
		fork_full_name text not null,
		created_at timestamptz not null default now()
	);`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
