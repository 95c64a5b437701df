package config

// Brisk represents the structure of the brisk.yaml configuration file.
// Every field is optional; absent fields keep their default value.
type Brisk struct {
	Port           *int      `yaml:"port"`
	LivereloadPort *int      `yaml:"livereloadPort"`
	Paths          *PathsDTO `yaml:"paths"`
	Proxy          *ProxyDTO `yaml:"proxy"`
}

// PathsDTO represents the directory layout section.
type PathsDTO struct {
	App   string `yaml:"app"`
	Temp  string `yaml:"temp"`
	Dist  string `yaml:"dist"`
	Bower string `yaml:"bower"`
}

// ProxyDTO represents the backend proxy section.
type ProxyDTO struct {
	Root  string   `yaml:"root"`
	Paths []string `yaml:"paths"`
}
