package graph

// Cypher statements for the workspace knowledge graph. All writes are MERGE
// based so they stay safe under concurrent document jobs; the uniqueness
// constraint on (workspace_id, name_key) is what makes CreateNode race-free.

const createNodeQuery = `
	MERGE (n:Knowledge {workspace_id: $workspace_id, name_key: $name_key})
	ON CREATE SET n.uuid = $uuid,
		n.name = $name,
		n.type = $type,
		n.level = $level,
		n.synthesis = $synthesis,
		n.aliases = $aliases,
		n.file_ids = $file_ids,
		n.evidence_count = $evidence_count,
		n.confidence = $confidence,
		n.name_embedding = $name_embedding,
		n.created_at = $created_at,
		n.updated_at = $updated_at,
		n.was_created = true
	ON MATCH SET n.was_created = false
	RETURN n.uuid AS uuid, n.was_created AS created
`

const mergeNodeQuery = `
	MATCH (n:Knowledge {uuid: $uuid})
	SET n.synthesis = n.synthesis + $synthesis_append,
		n.evidence_count = n.evidence_count + 1,
		n.confidence = n.confidence + $boost,
		n.updated_at = $updated_at,
		n.file_ids = CASE
			WHEN $file_id IN n.file_ids THEN n.file_ids
			ELSE n.file_ids + $file_id
		END,
		n.aliases = CASE
			WHEN $alias = '' OR $alias IN n.aliases OR toLower(n.name) = toLower($alias) THEN n.aliases
			ELSE n.aliases + $alias
		END
	RETURN n.uuid AS uuid
`

const findByNameQuery = `
	MATCH (n:Knowledge {workspace_id: $workspace_id})
	WHERE n.name_key = $name_key
		OR any(a IN n.aliases WHERE toLower(a) = $name_key)
	RETURN ` + nodeReturn + `
	LIMIT 1
`

const getNodeQuery = `
	MATCH (n:Knowledge {uuid: $uuid})
	RETURN ` + nodeReturn + `
`

const embeddedNodesQuery = `
	MATCH (n:Knowledge {workspace_id: $workspace_id})
	WHERE n.name_embedding IS NOT NULL
	RETURN ` + nodeReturn + `
`

const nodeReturn = `
	n.uuid AS uuid, n.workspace_id AS workspace_id, n.name AS name,
	n.type AS type, n.level AS level, n.synthesis AS synthesis,
	n.aliases AS aliases, n.file_ids AS file_ids,
	n.evidence_count AS evidence_count, n.confidence AS confidence,
	n.name_embedding AS name_embedding
`

const ensureEdgeQueryTemplate = `
	MATCH (p:Knowledge {uuid: $parent_uuid})
	MATCH (c:Knowledge {uuid: $child_uuid})
	MERGE (p)-[e:%s]->(c)
	ON CREATE SET e.workspace_id = $workspace_id, e.created_at = $created_at
	RETURN c.uuid AS uuid
`

const createEvidenceQuery = `
	MATCH (n:Knowledge {uuid: $node_uuid})
	CREATE (ev:Evidence {
		uuid: $uuid,
		file_id: $file_id,
		file_name: $file_name,
		chunk_index: $chunk_index,
		text: $text,
		page: $page,
		position_start: $position_start,
		position_end: $position_end,
		confidence: $confidence,
		concepts: $concepts,
		key_claims: $key_claims,
		open_questions: $open_questions,
		language: $language,
		created_at: $created_at
	})
	MERGE (n)-[:SUPPORTED_BY]->(ev)
	RETURN ev.uuid AS uuid
`

const createGapQuery = `
	MATCH (n:Knowledge {uuid: $node_uuid})
	CREATE (g:Gap {
		uuid: $uuid,
		suggestion: $suggestion,
		reference: $reference,
		relevance: $relevance,
		created_at: $created_at
	})
	MERGE (n)-[:HAS_GAP]->(g)
	RETURN g.uuid AS uuid
`

const workspaceCountsQuery = `
	MATCH (n:Knowledge {workspace_id: $workspace_id})
	OPTIONAL MATCH (n)-[:SUPPORTED_BY]->(ev:Evidence)
	RETURN count(DISTINCT n) AS nodes, count(ev) AS evidences
`

const workspaceFilesQuery = `
	MATCH (n:Knowledge {workspace_id: $workspace_id})
	UNWIND n.file_ids AS f
	RETURN count(DISTINCT f) AS files
`
