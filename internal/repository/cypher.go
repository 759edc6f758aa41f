package repository

var schemaStatements = []string{
	`CREATE CONSTRAINT payment_id IF NOT EXISTS FOR (p:Payment) REQUIRE p.paymentId IS UNIQUE`,
	`CREATE CONSTRAINT client_id IF NOT EXISTS FOR (c:Client) REQUIRE c.clientId IS UNIQUE`,
	`CREATE CONSTRAINT chatter_id IF NOT EXISTS FOR (h:Chatter) REQUIRE h.chatterId IS UNIQUE`,
	`CREATE CONSTRAINT client_team_email IF NOT EXISTS FOR (c:Client) REQUIRE (c.teamId, c.email) IS UNIQUE`,
	`CREATE CONSTRAINT client_team_phone IF NOT EXISTS FOR (c:Client) REQUIRE (c.teamId, c.phone) IS UNIQUE`,
	`CREATE INDEX payment_team_paid IF NOT EXISTS FOR (p:Payment) ON (p.teamId, p.paidAt)`,
}

const paymentFilterClause = `
WHERE p.teamId = $teamId
  AND ($from = "" OR p.paidAt >= datetime($from))
  AND ($to = "" OR p.paidAt <= datetime($to))
  AND ($chatterId = "" OR p.chatterId = $chatterId)
  AND ($clientId = "" OR p.clientId = $clientId)
  AND ($platform = "" OR toLower(coalesce(p.platform, "")) = $platform)
`

const paymentReturnClause = `
RETURN p.paymentId AS paymentId,
       p.teamId AS teamId,
       p.clientId AS clientId,
       p.chatterId AS chatterId,
       p.amount AS amount,
       p.feeAmount AS feeAmount,
       p.currency AS currency,
       p.paidAt AS paidAt,
       p.status AS status,
       p.platform AS platform,
       p.soldItem AS soldItem,
       p.model AS model,
       p.bank AS bank,
       p.message AS message,
       p.createdAt AS createdAt
`

const queryPaymentsCypherTemplate = `
MATCH (p:Payment)
%s` + paymentReturnClause + `
ORDER BY p.paidAt ASC, p.createdAt ASC, p.paymentId ASC
`

const listPaymentsCypherTemplate = `
MATCH (p:Payment)
%s` + paymentReturnClause + `
ORDER BY %s, p.paymentId ASC
SKIP $skip LIMIT $limit
`

const countPaymentsCypherTemplate = `
MATCH (p:Payment)
%s
RETURN count(p) AS total
`

const firstPaymentTimesCypher = `
MATCH (p:Payment {teamId: $teamId})
WHERE coalesce(p.clientId, "") <> ""
RETURN p.clientId AS clientId, min(p.paidAt) AS firstPaidAt
`

const insertPaymentCypher = `
MERGE (p:Payment {paymentId: $paymentId})
ON CREATE SET p += $props,
              p.teamId = $teamId,
              p.paidAt = datetime($paidAt),
              p.createdAt = datetime($createdAt)
WITH p
OPTIONAL MATCH (c:Client {clientId: $clientId, teamId: $teamId})
FOREACH (_ IN CASE WHEN c IS NULL THEN [] ELSE [1] END | MERGE (p)-[:PAID_BY]->(c))
WITH p
OPTIONAL MATCH (h:Chatter {chatterId: $chatterId, teamId: $teamId})
FOREACH (_ IN CASE WHEN h IS NULL THEN [] ELSE [1] END | MERGE (p)-[:RECEIVED_BY]->(h))
RETURN p.paymentId AS paymentId
`

const deletePaymentCypher = `
OPTIONAL MATCH (p:Payment {paymentId: $paymentId, teamId: $teamId})
WITH p, CASE WHEN p IS NULL THEN 0 ELSE 1 END AS deleted
DETACH DELETE p
RETURN deleted
`

const clientReturnClause = `
RETURN c.clientId AS clientId,
       c.teamId AS teamId,
       c.name AS name,
       c.email AS email,
       c.phone AS phone,
       c.payoutDay AS payoutDay,
       c.notes AS notes,
       c.createdAt AS createdAt,
       c.deletedAt AS deletedAt
`

const findClientByEmailCypher = `
MATCH (c:Client {teamId: $teamId, email: $value})
WHERE c.deletedAt IS NULL` + clientReturnClause + `
LIMIT 1
`

const findClientByPhoneCypher = `
MATCH (c:Client {teamId: $teamId, phone: $value})
WHERE c.deletedAt IS NULL` + clientReturnClause + `
LIMIT 1
`

// A MERGE that matches a soft-deleted client restores it.
const mergeClientByEmailCypher = `
MERGE (c:Client {teamId: $teamId, email: $value})
ON CREATE SET c += $props,
              c.clientId = $clientId,
              c.createdAt = datetime($createdAt)
ON MATCH SET c.deletedAt = null
WITH c` + clientReturnClause

const mergeClientByPhoneCypher = `
MERGE (c:Client {teamId: $teamId, phone: $value})
ON CREATE SET c += $props,
              c.clientId = $clientId,
              c.createdAt = datetime($createdAt)
ON MATCH SET c.deletedAt = null
WITH c` + clientReturnClause

const createClientCypher = `
MERGE (c:Client {clientId: $clientId})
ON CREATE SET c += $props,
              c.teamId = $teamId,
              c.createdAt = datetime($createdAt)
WITH c` + clientReturnClause

const queryClientsCypher = `
MATCH (c:Client {teamId: $teamId})
WHERE (size($ids) = 0 OR c.clientId IN $ids)
  AND ($includeDeleted OR c.deletedAt IS NULL)` + clientReturnClause + `
ORDER BY c.clientId
`

const queryChattersCypher = `
MATCH (h:Chatter {teamId: $teamId})
WHERE ($username = "" OR toLower(h.username) = $username)
  AND ($includeDeleted OR h.deletedAt IS NULL)
RETURN h.chatterId AS chatterId,
       h.teamId AS teamId,
       h.username AS username,
       h.displayName AS displayName,
       h.role AS role,
       h.deletedAt AS deletedAt
ORDER BY h.chatterId
`

const upsertChatterCypher = `
MERGE (h:Chatter {chatterId: $chatterId})
SET h += $props,
    h.teamId = $teamId
RETURN h.chatterId AS chatterId
`
