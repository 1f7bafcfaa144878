// Package certgen generates PDF certificates from LaTeX templates and a
// table of recipients.
//
// # Quick Start
//
// Describe a batch in YAML or JSON, load it and run it:
//
//	bf, err := certgen.LoadBatchFile("batch.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	batch, err := bf.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := batch.Execute(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	files, _ := batch.OutputFiles()
//
// Each template is expanded once per student, in template-major order, and
// every expansion is compiled by its own supervised compiler process. Output
// files are named {template}_{n}_{surname}_{name}.pdf, where n counts the
// documents generated from that template.
//
// # Template Markup
//
// Templates are ordinary LaTeX with two directives:
//
//	\substitude[student]{name}       a student field
//	\substitude[global]{place}       a batch-wide property
//	\substitude{course}              student first, then global
//	\optional{modules}{\substitude{title} & \substitude{grade} \\}
//
// \optional repeats its body once per row of a student table; directives in
// the body read the row. The line \usepackage{certificate-generator} is
// removed before compilation so templates can be previewed with the
// scaffolded style file.
//
// A global "date" property of "auto", "auto:<preset>" (iso, european, us,
// long, german) or "auto:<format>" such as "auto:DD/MM/YYYY" is replaced by
// the date the batch was created.
//
// # Configuration
//
// Resource limits and concurrency caps live in an immutable Configuration.
// Install one for the whole process with Setup, or pass one per batch:
//
//	cfg, err := certgen.Setup(
//	    certgen.WithSandbox(false),
//	    certgen.WithJobTimeout(time.Minute),
//	)
//
// Setup succeeds once. Current returns the installed value, installing the
// defaults if Setup never ran.
//
// # Sandboxing
//
// By default the compiler runs inside a container (docker run --network=none
// with dropped capabilities and a memory cap). With WithSandbox(false) it runs
// directly under CPU and address-space rlimits, which are only enforced on
// Linux. Either way a job exceeding its timeout receives SIGTERM, then
// SIGKILL.
//
// # Concurrency
//
// A batch never runs more than MaxWorkersPerBatch compilers, and all batches
// sharing a Pool never run more than its size. SharedPool returns a process
// wide Pool sized by MaxWorkersGlobal.
//
// # Sessions
//
// Session stages uploaded templates and resources in private directories,
// runs one batch and hands the generated files back:
//
//	s, err := certgen.NewSession(certgen.SessionConfig{
//	    WorkingDirectory: "/var/lib/certgen/work",
//	    OutputDirectory:  "/var/lib/certgen/out",
//	})
//	defer s.Close()
//	_ = s.SetConfigurationData(studentsYAML)
//	_, _ = s.AddTemplateFile(certgen.File{Name: "cert.tex", Content: tex})
//	files, err := s.Generate(ctx)
//
// # Errors
//
// Every failure is an *Error carrying a Kind. Match kinds with errors.Is and
// the package sentinels (ErrCompilerMissing, ErrInvalidTemplate, ...).
package certgen
