package timescaledb

const createSamplesTableSQL = `
CREATE TABLE IF NOT EXISTS event_samples (
    sample_time timestamp WITH TIME ZONE NOT NULL,
    run_id text NOT NULL,
    event_id bigint NOT NULL,
    station text NOT NULL,
    x float8 NULL,
    y float8 NULL,
    residual float8 NULL,
    residual_avg float8 NULL
);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `SELECT create_hypertable('event_samples', 'sample_time', if_not_exists => true);`
