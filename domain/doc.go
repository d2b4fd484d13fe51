// Package domain assembles bus.Switch and bus.Router instances into an
// undirected graph and drives them as one cooperative ensemble.
//
// A Domain is a builder: AddSwitch, AddEndpoint, and JoinSwitches add
// nodes and edges to the graph. AddSwitch returns an untyped SwitchHandler;
// AddEndpoint returns an endpoint typed by the caller's payload type. Done() moves the graph's devices out into a DomainServer,
// whose Serve(ctx) races every device's poll loop against ctx.
package domain
