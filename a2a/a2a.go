// Package a2a defines the engine's view of the agent-to-agent task protocol:
// tasks, messages, agent cards, the executor contract, and the event queue.
// The transport that moves these structures between agents is an external
// collaborator; this package only fixes the shapes the payment extension
// reads and writes.
package a2a

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskState is the A2A-level lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateRejected      TaskState = "rejected"
)

// Terminal reports whether the state ends the task's lifecycle.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	}
	return false
}

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Part is a single content part of a message. Only text parts are modeled;
// the payment engine never inspects parts.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) Part {
	return Part{Kind: "text", Text: text}
}

// Message is a single turn sent between agents. A message that continues a
// prior task carries that task's id in TaskID.
type Message struct {
	// MessageID uniquely identifies the message.
	MessageID string `json:"messageId"`

	// Role is the sender role ("user" or "agent").
	Role string `json:"role"`

	// TaskID correlates the message with an existing task, when set.
	TaskID string `json:"taskId,omitempty"`

	// ContextID groups related tasks and messages.
	ContextID string `json:"contextId,omitempty"`

	// Parts is the message content.
	Parts []Part `json:"parts,omitempty"`

	// Metadata is an open bag of string-keyed JSON values.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TaskStatus is a task's current state plus the status message that carried
// it there.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// Task is the A2A unit of work.
type Task struct {
	// ID uniquely identifies the task.
	ID string `json:"id"`

	// ContextID groups related tasks and messages.
	ContextID string `json:"contextId,omitempty"`

	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`

	// Metadata is an open bag of string-keyed JSON values.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// History is the ordered message history of the task.
	History []Message `json:"history,omitempty"`
}

// NewTask creates a submitted task seeded from the triggering message.
func NewTask(msg *Message) *Task {
	t := &Task{
		ID:        uuid.NewString(),
		Status:    TaskStatus{State: TaskStateSubmitted, Timestamp: now()},
		ContextID: "",
	}
	if msg != nil {
		t.ContextID = msg.ContextID
		if msg.TaskID != "" {
			t.ID = msg.TaskID
		}
		t.History = append(t.History, *msg)
	}
	if t.ContextID == "" {
		t.ContextID = uuid.NewString()
	}
	return t
}

// SetStatus transitions the task, recording the status message when given.
func (t *Task) SetStatus(state TaskState, msg *Message) {
	t.Status = TaskStatus{State: state, Message: msg, Timestamp: now()}
}

// NewAgentMessage creates an agent-role message bound to a task.
func NewAgentMessage(taskID, contextID string, parts ...Part) *Message {
	return &Message{
		MessageID: uuid.NewString(),
		Role:      RoleAgent,
		TaskID:    taskID,
		ContextID: contextID,
		Parts:     parts,
	}
}

// NewUserMessage creates a user-role message bound to a task.
func NewUserMessage(taskID, contextID string, parts ...Part) *Message {
	return &Message{
		MessageID: uuid.NewString(),
		Role:      RoleUser,
		TaskID:    taskID,
		ContextID: contextID,
		Parts:     parts,
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Event is anything an executor can enqueue for delivery to the remote
// agent: tasks and messages.
type Event interface {
	isEvent()
}

func (*Task) isEvent()    {}
func (*Message) isEvent() {}

// EventQueue delivers events back to the transport in the order they are
// enqueued. Enqueue may block on transport backpressure.
type EventQueue interface {
	Enqueue(ctx context.Context, event Event) error
}

// RequestContext describes a single inbound invocation: the triggering
// message and, for continued conversations, the task it belongs to.
type RequestContext struct {
	// TaskID is the id of the task this invocation belongs to, if any.
	TaskID string

	// ContextID groups related tasks and messages.
	ContextID string

	// Message is the inbound message.
	Message *Message

	// CurrentTask is the existing task, nil for a fresh conversation.
	CurrentTask *Task

	// ActivatedExtensions lists extension URIs the caller activated via the
	// X-A2A-Extensions request header.
	ActivatedExtensions []string
}

// ExtensionActivated reports whether the caller requested the given
// extension URI.
func (rc *RequestContext) ExtensionActivated(uri string) bool {
	for _, u := range rc.ActivatedExtensions {
		if u == uri {
			return true
		}
	}
	return false
}

// Executor is the agent execution contract. The payment middlewares wrap an
// Executor and are Executors themselves.
type Executor interface {
	// Execute handles one inbound invocation, emitting results through the
	// event queue.
	Execute(ctx context.Context, rc *RequestContext, queue EventQueue) error

	// Cancel aborts an in-flight task.
	Cancel(ctx context.Context, rc *RequestContext, queue EventQueue) error
}

// AgentExtension declares a protocol extension in an agent card.
type AgentExtension struct {
	// URI identifies the extension.
	URI string `json:"uri"`

	// Description explains the extension to humans.
	Description string `json:"description,omitempty"`

	// Required marks extensions the agent cannot operate without.
	Required bool `json:"required,omitempty"`

	// Params carries extension-specific configuration.
	Params map[string]interface{} `json:"params,omitempty"`
}

// AgentCapabilities is the capabilities section of an agent card.
type AgentCapabilities struct {
	Extensions []AgentExtension `json:"extensions,omitempty"`
}

// AgentCard is the discovery document describing an agent.
type AgentCard struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	URL          string            `json:"url,omitempty"`
	Capabilities AgentCapabilities `json:"capabilities"`
}
