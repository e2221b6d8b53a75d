package computer

import (
	"github.com/ygrebnov/fabric/internal/transport"
)

// Register dials the Space at spaceAddr, announces the Computer's own
// callback address, and stores the assigned tier-local id.
func (c *Computer) Register(spaceAddr, callbackAddr string) error {
	client, err := transport.Dial(spaceAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	var reply transport.RegisterComputerReply
	err = client.Call(
		transport.SpaceService+".RegisterComputer",
		&transport.RegisterComputerArgs{CallbackAddr: callbackAddr},
		&reply,
	)
	if err != nil {
		return err
	}

	c.id.Store(int32(reply.ComputerID))
	c.logger.Info().Int("computer_id", reply.ComputerID).Str("space", spaceAddr).Msg("registered with space")
	return nil
}
