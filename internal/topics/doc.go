// Package topics defines the broker destinations the chat client talks to.
//
// Every destination is a Topic with a stable name, a documented pattern and
// an example. Patterns may contain {parameters}, for instance the per-user
// private queue /user/{username}/queue/private; Destination fills them in and
// rejects values that would change the shape of the path.
package topics
