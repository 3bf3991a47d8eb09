package config

// manifestSchema constrains the fields the packager reads from a project
// manifest. Unknown keys are allowed; they are shipped untouched.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "version"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "build": {
      "type": "object",
      "properties": {
        "nwVersion": {"type": "string"},
        "nwFlavor": {"enum": ["normal", "sdk"]},
        "output": {"type": "string"},
        "outputPattern": {"type": "string"},
        "packed": {"type": "boolean"},
        "targets": {"type": "array", "items": {"type": "string"}},
        "files": {"type": "array", "items": {"type": "string"}},
        "excludes": {"type": "array", "items": {"type": "string"}},
        "appId": {"type": "string"},
        "ffmpegIntegration": {"type": "boolean"},
        "strippedProperties": {"type": "array", "items": {"type": "string"}},
        "overriddenProperties": {"type": "object"},
        "win": {
          "type": "object",
          "properties": {
            "productName": {"type": "string"},
            "companyName": {"type": "string"},
            "fileDescription": {"type": "string"},
            "productVersion": {"type": "string"},
            "fileVersion": {"type": "string"},
            "copyright": {"type": "string"},
            "versionStrings": {"type": "object", "additionalProperties": {"type": "string"}},
            "icon": {"type": "string"}
          }
        },
        "mac": {
          "type": "object",
          "properties": {
            "name": {"type": "string"},
            "displayName": {"type": "string"},
            "version": {"type": "string"},
            "description": {"type": "string"},
            "copyright": {"type": "string"},
            "icon": {"type": "string"}
          }
        },
        "nsis": {
          "type": "object",
          "properties": {
            "icon": {"type": "string"},
            "unIcon": {"type": "string"},
            "languages": {"type": "array", "items": {"type": "string"}},
            "installDirectory": {"type": "string"},
            "diffUpdaters": {"type": "boolean"}
          }
        }
      }
    }
  }
}`
