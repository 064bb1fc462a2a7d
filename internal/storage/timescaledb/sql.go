package timescaledb

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;`

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS quench_runs (
    run_id        uuid NOT NULL,
    started_at    timestamp WITH TIME ZONE NOT NULL,
    policy        text NOT NULL,
    mass_limit    double precision NOT NULL,
    interpolation boolean NOT NULL DEFAULT false,
    elapsed_ns    bigint NOT NULL,
    total         integer NOT NULL,
    quenched      integer NOT NULL,
    failed        integer NOT NULL,
    skipped       integer NOT NULL,
    episodes      integer NOT NULL,
    rejuvenations integer NOT NULL,
    failures      jsonb NULL,
    PRIMARY KEY (run_id, started_at)
);`

const createHypertableSQL = `SELECT create_hypertable('quench_runs', 'started_at', if_not_exists => true);`

const createGalaxyResultsTableSQL = `
CREATE TABLE IF NOT EXISTS quench_galaxy_results (
    id              bigserial PRIMARY KEY,
    run_id          uuid NOT NULL,
    galaxy_id       integer NOT NULL,
    outcome         text NOT NULL,
    quench_episodes jsonb NULL,
    rejuvenations   jsonb NULL,
    interpolated    bytea NULL,
    UNIQUE (run_id, galaxy_id)
);`

const createGalaxyResultsIndexSQL = `CREATE INDEX IF NOT EXISTS quench_galaxy_results_run_idx ON quench_galaxy_results (run_id);`
