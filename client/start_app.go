package client

import (
	"fmt"

	"github.com/mongoose-os/badgelink/proto"
)

// StartApp launches an app already installed on the badge's AppFS.
// Returns a conn.Error with Kind KindBadge and Status StatusNotFound if slug
// does not name an installed app.
func (c *Client) StartApp(slug, arg string) error {
	if err := validateField("slug", slug, maxAppfsSlugLen); err != nil {
		return err
	}
	if err := validateField("arg", arg, maxAppArgLen); err != nil {
		return err
	}
	_, err := c.Conn.SimpleRequest(proto.NewStartAppRequest(slug, arg), fmt.Sprintf("App `%s`", slug), c.Conn.DefTimeout)
	return err
}
