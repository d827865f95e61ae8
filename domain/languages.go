package domain

const PlainText = "plaintext"

var starterCode = map[string]string{
	"python":     "print('Hello from CodeShare!')\n",
	"javascript": "console.log('Hello from CodeShare!');\n",
	"typescript": "console.log('Hello from CodeShare!');\n",
	"java":       "public class Main {\n    public static void main(String[] args) {\n        System.out.println(\"Hello from CodeShare!\");\n    }\n}\n",
	"cpp":        "#include <iostream>\n\nint main() {\n    std::cout << \"Hello from CodeShare!\" << std::endl;\n    return 0;\n}\n",
	"csharp":     "using System;\n\npublic class Program\n{\n    public static void Main(string[] args)\n    {\n        Console.WriteLine(\"Hello from CodeShare!\");\n    }\n}\n",
	"go":         "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"Hello from CodeShare!\")\n}\n",
	"rust":       "fn main() {\n    println!(\"Hello from CodeShare!\");\n}\n",
}

// StarterCode returns the snippet a fresh session of the given language opens with.
func StarterCode(language string) string {
	if code, ok := starterCode[language]; ok {
		return code
	}
	return ""
}
