package config

const (
	defaultServerAddr    = ":8080"
	defaultGrpcPort      = 50051
	defaultGrpcAddr      = "127.0.0.1:50051"
	defaultJaegerService = "spending-tracker"
)

type ServerConfig struct {
	Address string   `yaml:"address"`
	Origins []string `yaml:"allowed-origins"`
}

func (s *ServerConfig) Addr() string {
	return s.Address
}

func (s *ServerConfig) AllowedOrigins() []string {
	return s.Origins
}

type GrpcConfig struct {
	Port int    `yaml:"port"`
	Addr string `yaml:"acceptor-addr"`
}

func (s *GrpcConfig) ListenPort() int {
	return s.Port
}

func (s *GrpcConfig) AcceptorAddr() string {
	return s.Addr
}

type JaegerConfig struct {
	Service string `yaml:"service"`
	Agent   string `yaml:"agent"`
}

func (s *JaegerConfig) ServiceName() string {
	return s.Service
}

// AgentHostPort is empty when tracing is disabled.
func (s *JaegerConfig) AgentHostPort() string {
	return s.Agent
}
