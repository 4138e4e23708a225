// Package gemini provides an implementation of the generation.Generator
// interface that uses Google's Gemini API to produce novel content.
//
// This package is an infrastructure adapter, connecting the application's
// orchestration layer to Google's external Gemini AI service. It translates
// between task kinds and model prompts without exposing the details of the
// external service to the core application.
//
// Key components:
//
// 1. NovelGenerator:
//   - Implements the generation.Generator interface
//   - Handles communication with the Gemini API
//   - Returns the model's JSON payload as an opaque task result
//
// 2. Prompt Management:
//   - Holds one prompt template per task kind
//   - Substitutes task parameters into templates
//
// 3. Error Handling:
//   - Implements retry logic with exponential backoff for transient errors
//   - Categorizes and translates API errors to application-specific errors
//   - Handles content filtering and safety measures
package gemini
