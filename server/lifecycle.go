package server

import (
	"github.com/ygrebnov/fabric/internal/transport"
)

// Register dials the Universe at universeAddr, announces the Server's own
// callback address, and stores the assigned tier-local id (design §6.2
// Universe.registerServer, client side).
func (s *Server) Register(universeAddr, callbackAddr string) error {
	client, err := transport.Dial(universeAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	var reply transport.RegisterServerReply
	err = client.Call(
		transport.UniverseService+".RegisterServer",
		&transport.RegisterServerArgs{CallbackAddr: callbackAddr},
		&reply,
	)
	if err != nil {
		return err
	}

	s.id.Store(int32(reply.ServerID))
	s.logger.Info().Int("server_id", reply.ServerID).Str("client_tag", s.clientTag).Str("universe", universeAddr).Msg("registered with universe")
	return nil
}
