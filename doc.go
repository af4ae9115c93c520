// Package confdata is the storage core of the confdesk conference-management
// service: a schemaless JSON document store over pluggable backends, plus the
// pagination and sequential-identifier machinery shared by the entity
// repositories.
//
// Documents live under collection-prefixed keys ("users/u001.json"). The
// Backend interface abstracts the byte storage (local filesystem in
// production, S3 for off-box backup mirrors); Store layers JSON handling,
// logging and metrics on top. Query provides filtered prefix scans where the
// result list and the total count always evaluate the same filter.
package confdata
