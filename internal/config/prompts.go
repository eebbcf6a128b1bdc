package config

const defaultSystemPrompt = `You are a shopping assistant backed by a graph of Amazon products, reviews, users and categories.
Use the available tools to look up products, reviews and network statistics before answering.
Answer concisely and only with facts returned by the tools. Mention ASINs when you refer to products.`

const defaultQueryPrompt = `You translate questions into read-only %[1]s queries.

Graph schema:
%[2]s

Rules:
- Only read data. Never create, update, merge, insert, remove or delete anything, and never CALL procedures.
- Return at most 20 rows.
- Return JSON only: {"query": "<%[1]s query>"}

Question: %[3]s`

const defaultAnswerPrompt = `Answer the question using only the query results below.
If the results are empty, say that no matching data was found.

Question: %s

Results (JSON):
%s

Return JSON only: {"answer": "<answer>"}`

const defaultMergePrompt = `Combine these partial answers to the same question into one concise answer.

Question: %s

Partial answers:
%s

Return JSON only: {"answer": "<answer>"}`

const defaultIdentifyPrompt = `Identify the product shown in the image.
User request: %s

Return JSON only: {"product_name": "<name>", "category": "<category>", "description": "<short description>"}`

const defaultCardPrompt = `Write a product card for the request below using the product graph context.
Prefer facts from the context. Keep general_review to a short paragraph that summarizes what reviewers say.

Request: %s

Context (JSON):
%s

Return JSON only:
{"product_name": "<name>", "score": <0-5>, "general_review": "<summary>", "category": "<category>",
 "alternatives": [{"name": "<name>", "product_id": "<id>", "score": <0-5>}], "prices": {"min": <number>, "avg": <number>}}`
