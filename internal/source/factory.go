package source

import "time"

// ClientOptions carries the settings shared by the built-in clients.
type ClientOptions struct {
	APIKey  string
	Timeout time.Duration
	Retries uint
}

// NewClients builds one client per registry entry according to its Kind.
// Stub entries get an empty stub; callers replace them as needed.
func NewClients(reg *Registry, opts ClientOptions) map[ID]Client {
	clients := make(map[ID]Client, len(reg.order))
	for _, info := range reg.All() {
		switch info.Kind {
		case KindAPI:
			clients[info.ID] = NewAPIClient(info, APIOptions{
				APIKey:  opts.APIKey,
				Timeout: opts.Timeout,
				Retries: opts.Retries,
			})
		case KindHTML:
			clients[info.ID] = NewHTMLClient(info, opts.Timeout)
		default:
			clients[info.ID] = NewStubClient(info.ID)
		}
	}
	return clients
}
