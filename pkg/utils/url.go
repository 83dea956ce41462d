package utils

import (
	"errors"
	"net/url"
)

const (
	DefaultHttpPort = "8080"
	DefaultGrpcPort = "9090"
)

func hostWithDefaultPort(uri *url.URL, port string) string {
	if uri.Port() == "" {
		return uri.Host + ":" + port
	}
	return uri.Host
}

// Parses a string of the form tcp://<host>[:<port>] and returns the
// host and port to listen on or connect to for HTTP. The port defaults to 8080.
func ParseHttpUrl(urlstr string) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}

	switch uri.Scheme {
	case "tcp", "http":
		return hostWithDefaultPort(uri, DefaultHttpPort), nil
	default:
		return "", errors.New("Unsupported protocol: " + uri.Scheme)
	}
}

// Parses a string of the form tcp://<host>[:<port>] and returns the
// host and port as a string, or an error if the string is not a valid URL.
// If the port is not specified, it defaults to 9090.
func ParseGrpcUrl(urlstr string) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}

	switch uri.Scheme {
	case "tcp", "grpc":
		return hostWithDefaultPort(uri, DefaultGrpcPort), nil
	default:
		return "", errors.New("Unsupported protocol: " + uri.Scheme)
	}
}

// Returns the base URL of the workforce host HTTP service,
// e.g. tcp://host -> http://host:8080.
func HttpBaseUrl(urlstr string) (string, error) {
	host, err := ParseHttpUrl(urlstr)
	if err != nil {
		return "", err
	}
	return "http://" + host, nil
}

// Returns the websocket URL of the workforce endpoint,
// e.g. tcp://host -> ws://host:8080/workforce.
func WebsocketUrl(urlstr string) (string, error) {
	uri, err := url.Parse(urlstr)
	if err != nil {
		return "", err
	}

	switch uri.Scheme {
	case "ws", "wss":
		if uri.Path == "" {
			uri.Path = "/workforce"
		}
		return uri.String(), nil
	}

	host, err := ParseHttpUrl(urlstr)
	if err != nil {
		return "", err
	}
	return "ws://" + host + "/workforce", nil
}
