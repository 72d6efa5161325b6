package seed

// File is the top-level structure of the seed YAML file.
type File struct {
	Services []Entry `yaml:"services"`
}

// Entry declares one service to pre-register.
type Entry struct {
	Name   string `yaml:"name"`
	Period int    `yaml:"period"`
}
