package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Browser sessions and egress proxies
			CREATE TABLE browser_configs (
				id BIGSERIAL PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				tenant VARCHAR(255) NOT NULL,
				cookies TEXT,
				user_agent TEXT,
				session_status VARCHAR(50) NOT NULL DEFAULT 'VALID' CHECK (session_status IN ('VALID', 'INVALID', 'EXPIRED')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_browser_configs_user_tenant ON browser_configs(user_id, tenant);

			CREATE TABLE proxy_pool (
				id BIGSERIAL PRIMARY KEY,
				url TEXT NOT NULL,
				username VARCHAR(255) NOT NULL DEFAULT '',
				password VARCHAR(255) NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE assigned_proxies (
				id BIGSERIAL PRIMARY KEY,
				proxy_pool_id BIGINT NOT NULL REFERENCES proxy_pool(id) ON DELETE CASCADE,
				user_id VARCHAR(255) NOT NULL UNIQUE,
				tenant VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			-- Automation runs and their append-only outcome records
			CREATE TABLE browser_automation_runs (
				id BIGSERIAL PRIMARY KEY,
				tenant VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				browser_config_id BIGINT NOT NULL,
				type VARCHAR(50) NOT NULL CHECK (type IN ('FIND_CONNECTIONS', 'DOWNLOAD_CONNECTIONS', 'FIND_COMPANY_PEOPLE', 'SEND_CONNECTION_REQUEST', 'SEND_MESSAGE')),
				payload TEXT,
				status VARCHAR(50) NOT NULL DEFAULT 'SCHEDULED' CHECK (status IN ('SCHEDULED', 'RUNNING', 'RETRYING', 'COMPLETED', 'FAILED', 'CANCELLED', 'PROCESSED')),
				scheduled_at TIMESTAMP WITH TIME ZONE,
				started_at TIMESTAMP WITH TIME ZONE,
				finished_at TIMESTAMP WITH TIME ZONE,
				run_duration INTEGER NOT NULL DEFAULT 0,
				retry_count INTEGER NOT NULL DEFAULT 0,
				triggered_by VARCHAR(50) NOT NULL DEFAULT 'MANUAL',
				priority INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_browser_automation_runs_status ON browser_automation_runs(status, priority DESC, created_at);
			CREATE INDEX idx_browser_automation_runs_browser_config_id ON browser_automation_runs(browser_config_id);

			CREATE TABLE browser_automation_run_results (
				id BIGSERIAL PRIMARY KEY,
				run_id BIGINT NOT NULL REFERENCES browser_automation_runs(id) ON DELETE CASCADE,
				type VARCHAR(50) NOT NULL,
				result_data TEXT,
				is_processed BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_browser_automation_run_results_run_id ON browser_automation_run_results(run_id);

			CREATE TABLE browser_automation_run_errors (
				id BIGSERIAL PRIMARY KEY,
				run_id BIGINT NOT NULL REFERENCES browser_automation_runs(id) ON DELETE CASCADE,
				error_type VARCHAR(255) NOT NULL,
				error_code VARCHAR(255),
				error_message TEXT NOT NULL,
				error_details TEXT,
				occurred_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_browser_automation_run_errors_run_id ON browser_automation_run_errors(run_id);
		`,
	}
}
