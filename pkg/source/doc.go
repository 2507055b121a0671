// Package source fetches pivot payloads from an aggregation backend.
//
// A [Source] answers two questions: the payload for a query (row and column
// node lists plus flat rows) and the distinct values of a field, which the
// filter menu offers. Aggregation, grouping, sorting and filtering all happen
// behind the source; this package only moves queries and payloads.
//
// Two implementations are provided:
//
//   - [FileSource] replays a payload saved on disk. Distinct values are
//     collected from the flat rows and the node labels.
//   - [HTTPSource] POSTs the query to a backend and retries transient
//     failures (transport errors, timeouts, 429 and 5xx responses).
//
// # Backend Protocol
//
// HTTPSource talks JSON to two endpoints under the base URL:
//
//	POST {base}/query     body: pivot.Query      response: io.Payload
//	POST {base}/distinct  body: {"field": "..."}  response: {"values": [...]}
package source
