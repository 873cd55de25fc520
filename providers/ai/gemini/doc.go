// Package gemini implements the [ai.Provider] and [ai.StreamProvider]
// interfaces for Google's Gemini generative language API.
//
// Prompts go to the generateContent endpoint, optionally with the Google
// Search grounding tool; chat replies stream from streamGenerateContent over
// SSE. Grounding metadata is mapped to [ai.Grounding], with the search
// suggestions widget converted from HTML to markdown. Error replies become
// [*APIError] values classified with [ai.ClassifyError].
//
// The primary entry point is [New], which reads GEMINI_API_KEY (or
// GOOGLE_API_KEY) and GEMINI_API_BASE_URL from the environment. Use
// [GeminiProvider.WithAPIKey], [GeminiProvider.WithBaseURL], or
// [GeminiProvider.WithHttpClient] to configure the provider programmatically.
package gemini
