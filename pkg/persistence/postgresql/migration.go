package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow template catalog. Stage and milestone blueprints are
			-- stored as one JSONB document per template.
			CREATE TABLE workflow_templates (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				procurement_type VARCHAR(50) NOT NULL CHECK (procurement_type IN ('software', 'hardware', 'services')),
				stages JSONB NOT NULL
			);

			-- Workflow header rows. The stage tree lives in its own tables.
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				evaluation_project_id VARCHAR(255) NOT NULL,
				vendor_id VARCHAR(255) NOT NULL,
				template_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('not_started', 'in_progress', 'completed', 'cancelled')),
				planned_start_date TIMESTAMP WITH TIME ZONE NOT NULL,
				planned_end_date TIMESTAMP WITH TIME ZONE,
				actual_start_date TIMESTAMP WITH TIME ZONE,
				actual_end_date TIMESTAMP WITH TIME ZONE,
				owner_name VARCHAR(255) NOT NULL DEFAULT '',
				cancellation_reason TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_by VARCHAR(255) NOT NULL
			);

			CREATE INDEX idx_workflows_project ON workflows(evaluation_project_id);
			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE stages (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				order_index INT NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'in_progress', 'blocked', 'completed', 'skipped')),
				target_days INT NOT NULL,
				planned_start_date TIMESTAMP WITH TIME ZONE NOT NULL,
				planned_end_date TIMESTAMP WITH TIME ZONE NOT NULL,
				actual_start_date TIMESTAMP WITH TIME ZONE,
				actual_end_date TIMESTAMP WITH TIME ZONE,
				owner_name VARCHAR(255) NOT NULL DEFAULT '',
				blocked_reason TEXT,
				unblocked_at TIMESTAMP WITH TIME ZONE,
				UNIQUE (workflow_id, order_index)
			);

			CREATE INDEX idx_stages_workflow_id ON stages(workflow_id);

			CREATE TABLE milestones (
				id UUID PRIMARY KEY,
				stage_id UUID NOT NULL REFERENCES stages(id) ON DELETE CASCADE,
				order_index INT NOT NULL,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'completed', 'skipped')),
				completed_at TIMESTAMP WITH TIME ZONE,
				completed_by VARCHAR(255),
				UNIQUE (stage_id, order_index)
			);

			CREATE INDEX idx_milestones_stage_id ON milestones(stage_id);

			-- Append-only audit trail. No UPDATE or DELETE path exists.
			CREATE TABLE activity_log (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				related_stage_id UUID,
				related_milestone_id UUID,
				activity_description TEXT NOT NULL,
				performed_by VARCHAR(255) NOT NULL,
				performed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_activity_log_workflow ON activity_log(workflow_id, performed_at DESC, id DESC);
		`,
	}
}
