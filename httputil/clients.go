package httputil

import (
	"net/http"
	"time"
)

type Clients struct {
	Feeds *http.Client // calendar feed hosts
	Push  *http.Client // notification endpoint
}

func NewClients() *Clients {
	feeds := &http.Client{
		Timeout: 20 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Feed hosts redirect webcal exports a few times; cap the chain.
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &Clients{
		Feeds: feeds,
		Push:  &http.Client{Timeout: 10 * time.Second},
	}
}
