package render

import (
	"context"

	"github.com/chromedp/cdproto/network"
)

func setExtraHeaders(ctx context.Context, headers map[string]string) error {
	h := make(network.Headers, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	if err := network.Enable().Do(ctx); err != nil {
		return err
	}
	return network.SetExtraHTTPHeaders(h).Do(ctx)
}
