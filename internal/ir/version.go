package ir

// Version is the IR schema version written to the wire form.
const Version = 1
