package ukv

// Version of the ukv-go module.
const Version = "0.1.0"
