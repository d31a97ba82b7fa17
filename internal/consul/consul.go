package consul

import (
	"fmt"
	"net"

	"github.com/egfanboy/mediapire-gateway/internal/app"
	"github.com/egfanboy/mediapire-gateway/internal/health"
	"github.com/hashicorp/consul/api"
)

var consulClient *api.Client

const (
	KeyScheme   = "scheme"
	KeyBasePath = "base_path"
)

func NewConsulClient(cfg app.ConsulConfig) error {
	if consulClient != nil {
		return nil
	}

	defaultConfig := api.DefaultConfig()

	defaultConfig.Address = fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	defaultConfig.Scheme = cfg.Scheme

	client, err := api.NewClient(defaultConfig)
	if err != nil {
		return err
	}

	consulClient = client

	return nil
}

func findTrafficIp() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return net.IP{}, err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP, nil
}

func serviceAddress(self app.Config) (string, error) {
	if self.ServiceAddress != "" {
		return self.ServiceAddress, nil
	}

	trafficIp, err := findTrafficIp()
	if err != nil {
		return "", err
	}

	return trafficIp.String(), nil
}

func serviceId(self app.Config, address string) string {
	return fmt.Sprintf("%s-%s", self.Name, address)
}

func newRegistration(self app.Config, address string) *api.AgentServiceRegistration {
	return &api.AgentServiceRegistration{
		ID:      serviceId(self, address),
		Name:    self.Name,
		Port:    self.Port,
		Address: address,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("%s://%s%s", self.Scheme, net.JoinHostPort(address, fmt.Sprint(self.Port)), self.BasePath+health.PathHealth),
			Interval: "10s",
			Timeout:  "30s",
		},
		Meta: map[string]string{KeyScheme: self.Scheme, KeyBasePath: self.BasePath},
	}
}

func RegisterService(self app.Config) error {
	address, err := serviceAddress(self)
	if err != nil {
		return err
	}

	return consulClient.Agent().ServiceRegister(newRegistration(self, address))
}

func UnregisterService(self app.Config) error {
	address, err := serviceAddress(self)
	if err != nil {
		return err
	}

	return consulClient.Agent().ServiceDeregister(serviceId(self, address))
}
