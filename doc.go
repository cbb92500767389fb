// Package stargazer is a conversational backend that answers astrology
// questions with a tool-augmented language model agent.
//
// A request flows through three stages. The retriever looks up curated
// question and answer pairs in a vector index and hands the matches that
// clear the similarity threshold to the agent. The agent streams model
// output and calls tools such as knowledge search, natal chart rendering,
// and external MCP servers. The server turns every agent event into a
// server-sent event frame and keeps idle connections alive.
//
// # Quick Start
//
//	export AZURE_OPENAI_API_KEY=...
//	export AZURE_OPENAI_ENDPOINT=https://my-resource.openai.azure.com/
//	export PINECONE_API_KEY=...
//	stargazer serve
//
// Stream an answer:
//
//	curl -N -X POST localhost:8000/chat/stream \
//	    -H 'Content-Type: application/json' \
//	    -d '{"query":"What does a Leo rising mean?"}'
//
// Load knowledge into the index:
//
//	stargazer index knowledge.jsonl
//
// # Packages
//
//   - pkg/config: configuration loading (defaults, YAML, environment)
//   - pkg/embedder: text embeddings
//   - pkg/vector: vector index gateways (Pinecone, Qdrant, chromem)
//   - pkg/rag: retrieval, threshold filtering, context formatting, indexing
//   - pkg/tool: tool registry, function tools, MCP tools, built-in tools
//   - pkg/model: chat model abstraction and the OpenAI client
//   - pkg/agent: the reasoning loop and its event sequence
//   - pkg/server: HTTP API and the event-stream transport
//   - pkg/runtime: component assembly from configuration
package stargazer
