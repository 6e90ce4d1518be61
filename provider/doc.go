// Package provider defines the normalized LLM contract used by the execution
// engine and the Router that binds named provider configurations to concrete
// vendor adapters. Adapters (see the openai, anthropic and gemini
// subpackages) translate the uniform Request/Response shapes to their SDK's
// wire format; the rest of the module never branches per vendor.
package provider
