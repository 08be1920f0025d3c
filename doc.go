// Command gqlc is an incremental compiler for GraphQL documents.
//
// gqlc reads a schema plus the operations and fragments of one or more projects, either from
// .graphql files or from graphql tagged templates embedded in JavaScript and TypeScript sources.
// Every definition is validated against the schema, run through a fixed pipeline of transforms
// and written to the project's output directory as a JSON artifact.
//
// In watch mode only the definitions affected by a batch of file changes are compiled again.
// The result of an incremental build is always the same as the result of a full rebuild.
//
// Usage:
//
//	gqlc build --config ./gqlc.yaml
//	gqlc watch --metrics-addr localhost:9090
//	gqlc schema web
//	gqlc config print
package main
