package topics

// Destinations of the chat server's STOMP broker.
var (
	// Public is the group channel carrying JOIN, LEAVE, TYPING and CHAT events.
	Public = MustRegister(Topic{
		Name:        "chat.public",
		Description: "Group channel broadcast to every connected client",
		Pattern:     "/topic/public",
		Example:     "/topic/public",
		Direction:   Subscribe,
	})

	// PrivateQueue carries private messages addressed to one user.
	PrivateQueue = MustRegister(Topic{
		Name:        "chat.private_queue",
		Description: "Per-user queue carrying private messages",
		Pattern:     "/user/{username}/queue/private",
		Example:     "/user/alice/queue/private",
		Direction:   Subscribe,
	})

	// AddUser announces the client on the group channel after connecting.
	AddUser = MustRegister(Topic{
		Name:        "chat.add_user",
		Description: "Join announcement sent once per connection",
		Pattern:     "/app/chat.adduser",
		Example:     "/app/chat.adduser",
		Direction:   Send,
	})

	// SendMessage publishes a ChatEvent to the group channel.
	SendMessage = MustRegister(Topic{
		Name:        "chat.send_message",
		Description: "Outgoing group chat, typing and leave events",
		Pattern:     "/app/chat.sendMessage",
		Example:     "/app/chat.sendMessage",
		Direction:   Send,
	})

	// SendPrivate publishes a PrivateMessage to its recipient.
	SendPrivate = MustRegister(Topic{
		Name:        "chat.send_private",
		Description: "Outgoing private message routed to the recipient's queue",
		Pattern:     "/app/chat.sendPrivateMessage",
		Example:     "/app/chat.sendPrivateMessage",
		Direction:   Send,
	})
)

// PrivateQueueFor returns the private queue destination of username.
func PrivateQueueFor(username string) (string, error) {
	return PrivateQueue.Destination(map[string]string{"username": username})
}
