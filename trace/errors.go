package trace

import "github.com/ceyewan/anchor/xerrors"

var (
	// ErrConfigNil 配置为 nil
	ErrConfigNil = xerrors.New("trace: config is nil")

	// ErrServiceNameEmpty 服务名为空
	ErrServiceNameEmpty = xerrors.New("trace: service name is empty")

	// ErrEndpointEmpty 上报端点为空
	ErrEndpointEmpty = xerrors.New("trace: endpoint is empty")
)
