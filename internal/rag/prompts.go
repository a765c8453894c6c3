package rag

// SystemPrompt steers the generation backend to answer strictly from the
// retrieved context.
const SystemPrompt = `You are a helpful assistant that answers questions based on the provided context documents.

Rules:
1. Answer only from the information in the context documents.
2. If the context does not contain the answer, say you don't have enough information.
3. Cite which document numbers support your answer when relevant.
4. Be concise and factual. Do not speculate beyond the context.`

// InsufficientAnswer is returned without calling the generation backend
// when retrieval produces no candidates.
const InsufficientAnswer = "I don't have enough information to answer this question based on the provided context."
